// Package geolib resolves IPv4 addresses into location records.
//
// geolib is the core of the geocidr project. Everything else in the
// repository (sources, HTTP server, CLI) is an example of how to feed
// this package with data and how to expose it to the outer world.
//
// The main entities are:
//
// # RangeIndex
//
// An immutable longest-prefix-match structure built from a set of
// network ranges. Ranges may overlap: a /25 inside a /24 inside a /16
// is fine, the most specific one always wins.
//
// # Snapshot
//
// A fully built RangeIndex together with a table of location entities.
// Snapshots are never mutated after construction, so any number of
// goroutines may query them at the same time without locks.
//
// # Resolver
//
// Holds a current snapshot and swaps it atomically when a dataset is
// refreshed. In-flight queries finish against the snapshot they
// started with.
//
// # Updater
//
// Periodically loads a dataset from a Source, builds a new Snapshot
// and installs it into the Resolver.
package geolib
