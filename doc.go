// Geocidr is a service which resolves IPv4 addresses into geographic
// locations using datasets of CIDR networks.
//
// Each dataset has 2 relations: networks (CIDR blocks with a geoname
// id and some network-level attributes like postal code or
// coordinates) and location entities (continent, country, subdivisions
// and city for a geoname id). For a given address, geocidr finds the
// most specific network which contains it and joins it with its
// location entity.
//
// Tool itself is organized into 2 logical parts:
//
// # Geolib
//
// geolib is a main package of the application. It has a range index,
// immutable snapshots of datasets, a resolver which swaps snapshots
// without interrupting queries and an HTTP API.
//
// # Sources
//
// This package has a set of dataset loaders: MaxMind GeoLite2 CSV
// files, MaxMind DB files, PostgreSQL tables and GeoLite2 CSV archives
// downloaded from MaxMind.
//
// A main package itself wires both geolib and sources. Resulting binary
// starts an HTTP server and you can use it in your infrastructure as
// is.
package main
