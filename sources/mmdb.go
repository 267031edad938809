package sources

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/9seconds/geocidr/geolib"
	"github.com/oschwald/maxminddb-golang"
	"github.com/spf13/afero"
)

const mmdbDefaultLocale = "en"

type mmdbNamedRecord struct {
	GeonameID *int64            `maxminddb:"geoname_id"`
	IsoCode   string            `maxminddb:"iso_code"`
	Code      string            `maxminddb:"code"`
	Names     map[string]string `maxminddb:"names"`
}

type mmdbCountryRecord struct {
	GeonameID         *int64            `maxminddb:"geoname_id"`
	IsoCode           string            `maxminddb:"iso_code"`
	Names             map[string]string `maxminddb:"names"`
	IsInEuropeanUnion bool              `maxminddb:"is_in_european_union"`
}

type mmdbRecord struct {
	City               *mmdbNamedRecord   `maxminddb:"city"`
	Continent          *mmdbNamedRecord   `maxminddb:"continent"`
	Country            *mmdbCountryRecord `maxminddb:"country"`
	RegisteredCountry  *mmdbCountryRecord `maxminddb:"registered_country"`
	RepresentedCountry *mmdbCountryRecord `maxminddb:"represented_country"`
	Subdivisions       []mmdbNamedRecord  `maxminddb:"subdivisions"`
	Location           struct {
		AccuracyRadius *int64   `maxminddb:"accuracy_radius"`
		Latitude       *float64 `maxminddb:"latitude"`
		Longitude      *float64 `maxminddb:"longitude"`
		MetroCode      *int64   `maxminddb:"metro_code"`
		TimeZone       string   `maxminddb:"time_zone"`
	} `maxminddb:"location"`
	Postal struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"postal"`
	Traits struct {
		IsAnonymousProxy    bool `maxminddb:"is_anonymous_proxy"`
		IsSatelliteProvider bool `maxminddb:"is_satellite_provider"`
	} `maxminddb:"traits"`
}

func (m *mmdbRecord) geonameID() (int64, error) {
	var city, country, registered, represented *int64

	if m.City != nil {
		city = m.City.GeonameID
	}

	if m.Country != nil {
		country = m.Country.GeonameID
	}

	if m.RegisteredCountry != nil {
		registered = m.RegisteredCountry.GeonameID
	}

	if m.RepresentedCountry != nil {
		represented = m.RepresentedCountry.GeonameID
	}

	if city == nil {
		city = country
	}

	return chooseGeonameID(city, registered, represented)
}

func (m *mmdbRecord) networkRange(network *net.IPNet) (geolib.NetworkRange, error) {
	rv := geolib.NetworkRange{
		Network:             ipv4NetworkString(network),
		PostalCode:          m.Postal.Code,
		IsAnonymousProxy:    m.Traits.IsAnonymousProxy,
		IsSatelliteProvider: m.Traits.IsSatelliteProvider,
		Latitude:            m.Location.Latitude,
		Longitude:           m.Location.Longitude,
		AccuracyRadius:      m.Location.AccuracyRadius,
	}

	if m.RegisteredCountry != nil {
		rv.RegisteredCountryGeonameID = m.RegisteredCountry.GeonameID
	}

	if m.RepresentedCountry != nil {
		rv.RepresentedCountryGeonameID = m.RepresentedCountry.GeonameID
	}

	geonameID, err := m.geonameID()
	rv.GeonameID = geonameID

	return rv, err
}

func (m *mmdbRecord) entity(geonameID int64, locale string) geolib.LocationEntity {
	rv := geolib.LocationEntity{
		GeonameID:  geonameID,
		LocaleCode: locale,
		TimeZone:   m.Location.TimeZone,
	}

	if m.Location.MetroCode != nil {
		rv.MetroCode = strconv.FormatInt(*m.Location.MetroCode, 10)
	}

	if m.Continent != nil {
		rv.ContinentCode = m.Continent.Code
		rv.ContinentName = m.Continent.Names[locale]
	}

	country := m.Country
	if country == nil {
		country = m.RegisteredCountry
	}

	if country != nil {
		rv.CountryISOCode = country.IsoCode
		rv.CountryName = country.Names[locale]
		rv.IsInEuropeanUnion = country.IsInEuropeanUnion
	}

	if len(m.Subdivisions) > 0 {
		rv.Subdivision1ISOCode = m.Subdivisions[0].IsoCode
		rv.Subdivision1Name = m.Subdivisions[0].Names[locale]
	}

	if len(m.Subdivisions) > 1 {
		rv.Subdivision2ISOCode = m.Subdivisions[1].IsoCode
		rv.Subdivision2Name = m.Subdivisions[1].Names[locale]
	}

	if m.City != nil {
		rv.CityName = m.City.Names[locale]
	}

	return rv
}

type mmdbSource struct {
	fs     afero.Fs
	path   string
	locale string
	logger geolib.Logger
}

func (m *mmdbSource) Name() string {
	return NameMMDB
}

func (m *mmdbSource) Load(ctx context.Context) (*geolib.Dataset, error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return nil, fmt.Errorf("cannot read a database file: %w", err)
	}

	reader, err := maxminddb.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize a reader of maxminddb: %w", err)
	}

	defer reader.Close()

	_, ipv4Space, _ := net.ParseCIDR("0.0.0.0/0")
	networks := reader.NetworksWithin(ipv4Space, maxminddb.SkipAliasedNetworks)
	entities := geolib.MemoryEntityTable{}
	ranges := []geolib.NetworkRange{}

	for networks.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := mmdbRecord{}

		network, err := networks.Network(&record)
		if err != nil {
			return nil, fmt.Errorf("cannot decode a record: %w", err)
		}

		rng, err := record.networkRange(network)
		if err != nil {
			m.logger.BuildWarning(m.Name(),
				fmt.Errorf("network %s is skipped: %w", rng.Network, err))

			continue
		}

		ranges = append(ranges, rng)

		if _, ok := entities[rng.GeonameID]; !ok {
			entities[rng.GeonameID] = record.entity(rng.GeonameID, m.locale)
		}
	}

	if err := networks.Err(); err != nil {
		return nil, fmt.Errorf("cannot traverse networks: %w", err)
	}

	return &geolib.Dataset{
		Ranges:   ranges,
		Entities: entities,
	}, nil
}

// NewMMDB returns a new source which reads MaxMind DB files
// (GeoLite2-City.mmdb and compatible ones).
//
//	Identifier: mmdb
//	Website: https://maxmind.github.io/MaxMind-DB/
//
// Only IPv4 part of the database is traversed. locale defines which
// names are taken from the records, default is en.
func NewMMDB(fs afero.Fs, path, locale string, logger geolib.Logger) geolib.Source {
	if locale == "" {
		locale = mmdbDefaultLocale
	}

	return &mmdbSource{
		fs:     fs,
		path:   path,
		locale: locale,
		logger: logger,
	}
}
