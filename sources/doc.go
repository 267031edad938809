// Package sources contains a set of dataset loaders for geolib.
//
// Each source returns a complete dataset: a list of network ranges and
// a table of location entities. Supported sources are:
//
//	csv          MaxMind GeoLite2 City CSV files on a filesystem
//	mmdb         MaxMind GeoLite2/GeoIP2 City database (.mmdb)
//	postgres     tables ip_to_geo_id and geo_id_to_name in PostgreSQL
//	maxmind_csv  GeoLite2 City CSV downloaded from MaxMind
package sources
