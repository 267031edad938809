package geolib

import (
	"strings"

	"github.com/pariz/gountries"
)

var countryCodeQuery = gountries.New()

// CountryDetails is an extended information about a country taken from
// ISO3166 registry.
type CountryDetails struct {
	Alpha2Code   string `json:"alpha2_code"`
	Alpha3Code   string `json:"alpha3_code"`
	CommonName   string `json:"common_name"`
	OfficialName string `json:"official_name"`
}

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Normalized code is uppercased with some additional mapping. For
// example, some databases return ZZ as 'unknown' country. This function
// returns "" instead. Some databases still map Serbia to YU. This
// correctly maps YU to CS.
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "AP", "EU":
		return ""
	case "YU":
		return "CS"
	case "FX":
		return "FR"
	case "UK":
		return "GB"
	default:
		return alpha2
	}
}

// LookupCountry returns details of the country by its 2-letter code.
func LookupCountry(alpha2 string) (CountryDetails, bool) {
	alpha2 = NormalizeAlpha2Code(alpha2)
	if alpha2 == "" {
		return CountryDetails{}, false
	}

	country, err := countryCodeQuery.FindCountryByAlpha(alpha2)
	if err != nil {
		return CountryDetails{}, false
	}

	return CountryDetails{
		Alpha2Code:   country.Alpha2,
		Alpha3Code:   country.Alpha3,
		CommonName:   country.Name.Common,
		OfficialName: country.Name.Official,
	}, true
}
