package geolib

import "net"

// NetworkRange is a single row of a network relation. Network is kept
// as it was given by a dataset: index validates and canonicalizes it.
//
// Optional numeric fields are pointers: nil means that dataset has no
// value for them. Optional strings are empty if absent.
type NetworkRange struct {
	Network                     string
	GeonameID                   int64
	RegisteredCountryGeonameID  *int64
	RepresentedCountryGeonameID *int64
	IsAnonymousProxy            bool
	IsSatelliteProvider         bool
	PostalCode                  string
	Latitude                    *float64
	Longitude                   *float64
	AccuracyRadius              *int64
}

// LocationEntity is a single row of entity relation. It describes a
// geographic entity addressed by geoname id.
type LocationEntity struct {
	GeonameID           int64
	LocaleCode          string
	ContinentCode       string
	ContinentName       string
	CountryISOCode      string
	CountryName         string
	Subdivision1ISOCode string
	Subdivision1Name    string
	Subdivision2ISOCode string
	Subdivision2Name    string
	CityName            string
	MetroCode           string
	TimeZone            string
	IsInEuropeanUnion   bool
}

// Dataset is a pair of relations required to build a snapshot.
type Dataset struct {
	Ranges   []NetworkRange
	Entities EntityTable
}

// ResolvedLocation is a denormalized result of the resolving: a union
// of the matched network range and its location entity.
type ResolvedLocation struct {
	Network                     string   `json:"network"`
	GeonameID                   int64    `json:"geoname_id"`
	RegisteredCountryGeonameID  *int64   `json:"registered_country_geoname_id"`
	RepresentedCountryGeonameID *int64   `json:"represented_country_geoname_id"`
	IsAnonymousProxy            bool     `json:"is_anonymous_proxy"`
	IsSatelliteProvider         bool     `json:"is_satellite_provider"`
	PostalCode                  string   `json:"postal_code"`
	Latitude                    *float64 `json:"latitude"`
	Longitude                   *float64 `json:"longitude"`
	AccuracyRadius              *int64   `json:"accuracy_radius"`
	LocaleCode                  string   `json:"locale_code"`
	ContinentCode               string   `json:"continent_code"`
	ContinentName               string   `json:"continent_name"`
	CountryISOCode              string   `json:"country_iso_code"`
	CountryName                 string   `json:"country_name"`
	Subdivision1ISOCode         string   `json:"subdivision_1_iso_code"`
	Subdivision1Name            string   `json:"subdivision_1_name"`
	Subdivision2ISOCode         string   `json:"subdivision_2_iso_code"`
	Subdivision2Name            string   `json:"subdivision_2_name"`
	CityName                    string   `json:"city_name"`
	MetroCode                   string   `json:"metro_code"`
	TimeZone                    string   `json:"time_zone"`
	IsInEuropeanUnion           bool     `json:"is_in_european_union"`
}

func newResolvedLocation(network *net.IPNet, rng NetworkRange, entity LocationEntity) ResolvedLocation {
	return ResolvedLocation{
		Network:                     network.String(),
		GeonameID:                   rng.GeonameID,
		RegisteredCountryGeonameID:  copyInt64(rng.RegisteredCountryGeonameID),
		RepresentedCountryGeonameID: copyInt64(rng.RepresentedCountryGeonameID),
		IsAnonymousProxy:            rng.IsAnonymousProxy,
		IsSatelliteProvider:         rng.IsSatelliteProvider,
		PostalCode:                  rng.PostalCode,
		Latitude:                    copyFloat64(rng.Latitude),
		Longitude:                   copyFloat64(rng.Longitude),
		AccuracyRadius:              copyInt64(rng.AccuracyRadius),
		LocaleCode:                  entity.LocaleCode,
		ContinentCode:               entity.ContinentCode,
		ContinentName:               entity.ContinentName,
		CountryISOCode:              entity.CountryISOCode,
		CountryName:                 entity.CountryName,
		Subdivision1ISOCode:         entity.Subdivision1ISOCode,
		Subdivision1Name:            entity.Subdivision1Name,
		Subdivision2ISOCode:         entity.Subdivision2ISOCode,
		Subdivision2Name:            entity.Subdivision2Name,
		CityName:                    entity.CityName,
		MetroCode:                   entity.MetroCode,
		TimeZone:                    entity.TimeZone,
		IsInEuropeanUnion:           entity.IsInEuropeanUnion,
	}
}

// ResolveResult is a result of a single address from a batch request.
// If Err is not nil, Location is empty.
type ResolveResult struct {
	Address  string
	Location ResolvedLocation
	Err      error
}

func (r *ResolveResult) OK() bool {
	return r.Err == nil
}
