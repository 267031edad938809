package sources

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/9seconds/geocidr/geolib"
	"github.com/spf13/afero"
)

const (
	csvDefaultBlocksFileName    = "GeoLite2-City-Blocks-IPv4.csv"
	csvDefaultLocationsFileName = "GeoLite2-City-Locations-en.csv"
)

type csvRowHandler func(columns csvColumns, record []string) error

type csvSource struct {
	fs            afero.Fs
	blocksPath    string
	locationsPath string
	logger        geolib.Logger
}

func (c *csvSource) Name() string {
	return NameCSV
}

func (c *csvSource) Load(ctx context.Context) (*geolib.Dataset, error) {
	entities := geolib.MemoryEntityTable{}
	ranges := []geolib.NetworkRange{}

	err := c.readFile(ctx, c.locationsPath, []string{"geoname_id"},
		func(columns csvColumns, record []string) error {
			entity, err := csvMakeEntity(columns, record)
			if err != nil {
				return err
			}

			if _, ok := entities[entity.GeonameID]; !ok {
				entities[entity.GeonameID] = entity
			}

			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("cannot read locations: %w", err)
	}

	err = c.readFile(ctx, c.blocksPath, []string{"network"},
		func(columns csvColumns, record []string) error {
			rng, err := csvMakeNetworkRange(columns, record)
			if err != nil {
				return err
			}

			ranges = append(ranges, rng)

			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("cannot read networks: %w", err)
	}

	return &geolib.Dataset{
		Ranges:   ranges,
		Entities: entities,
	}, nil
}

// readFile reads CSV file row by row. Rows which cannot be converted
// are logged and skipped, structural CSV errors abort reading.
func (c *csvSource) readFile(ctx context.Context, path string, required []string, handler csvRowHandler) error {
	fp, err := c.fs.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open a file: %w", err)
	}

	defer fp.Close()

	var reader io.Reader = fp

	if strings.HasSuffix(path, ".gz") {
		gzipReader, err := gzip.NewReader(fp)
		if err != nil {
			return fmt.Errorf("incorrect gzip archive: %w", err)
		}

		defer gzipReader.Close()

		reader = gzipReader
	}

	csvReader := csv.NewReader(reader)
	csvReader.Comment = '#'
	csvReader.ReuseRecord = true

	header, err := csvReader.Read()
	if err != nil {
		return fmt.Errorf("cannot read a header: %w", err)
	}

	columns, err := newCSVColumns(header, required...)
	if err != nil {
		return fmt.Errorf("incorrect header: %w", err)
	}

	csvReader.FieldsPerRecord = len(header)

	for lineNo := 2; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := csvReader.Read()

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("cannot read a record: %w", err)
		}

		if err := handler(columns, record); err != nil {
			c.logger.BuildWarning(c.Name(), fmt.Errorf("%s:%d is skipped: %w", path, lineNo, err))
		}
	}
}

func csvMakeEntity(columns csvColumns, record []string) (geolib.LocationEntity, error) {
	geonameID, err := parseOptionalInt(columns.Get(record, "geoname_id"))

	switch {
	case err != nil:
		return geolib.LocationEntity{}, err
	case geonameID == nil:
		return geolib.LocationEntity{}, ErrNoGeonameID
	}

	isInEU, err := parseBool(columns.Get(record, "is_in_european_union"))
	if err != nil {
		return geolib.LocationEntity{}, err
	}

	return geolib.LocationEntity{
		GeonameID:           *geonameID,
		LocaleCode:          columns.Get(record, "locale_code"),
		ContinentCode:       columns.Get(record, "continent_code"),
		ContinentName:       columns.Get(record, "continent_name"),
		CountryISOCode:      columns.Get(record, "country_iso_code"),
		CountryName:         columns.Get(record, "country_name"),
		Subdivision1ISOCode: columns.Get(record, "subdivision_1_iso_code"),
		Subdivision1Name:    columns.Get(record, "subdivision_1_name"),
		Subdivision2ISOCode: columns.Get(record, "subdivision_2_iso_code"),
		Subdivision2Name:    columns.Get(record, "subdivision_2_name"),
		CityName:            columns.Get(record, "city_name"),
		MetroCode:           columns.Get(record, "metro_code"),
		TimeZone:            columns.Get(record, "time_zone"),
		IsInEuropeanUnion:   isInEU,
	}, nil
}

func csvMakeNetworkRange(columns csvColumns, record []string) (geolib.NetworkRange, error) {
	rv := geolib.NetworkRange{
		Network:    columns.Get(record, "network"),
		PostalCode: columns.Get(record, "postal_code"),
	}

	geonameID, err := parseOptionalInt(columns.Get(record, "geoname_id"))
	if err != nil {
		return rv, err
	}

	if rv.RegisteredCountryGeonameID, err = parseOptionalInt(columns.Get(record, "registered_country_geoname_id")); err != nil {
		return rv, err
	}

	if rv.RepresentedCountryGeonameID, err = parseOptionalInt(columns.Get(record, "represented_country_geoname_id")); err != nil {
		return rv, err
	}

	if rv.IsAnonymousProxy, err = parseBool(columns.Get(record, "is_anonymous_proxy")); err != nil {
		return rv, err
	}

	if rv.IsSatelliteProvider, err = parseBool(columns.Get(record, "is_satellite_provider")); err != nil {
		return rv, err
	}

	if rv.Latitude, err = parseOptionalFloat(columns.Get(record, "latitude")); err != nil {
		return rv, err
	}

	if rv.Longitude, err = parseOptionalFloat(columns.Get(record, "longitude")); err != nil {
		return rv, err
	}

	if rv.AccuracyRadius, err = parseOptionalInt(columns.Get(record, "accuracy_radius")); err != nil {
		return rv, err
	}

	rv.GeonameID, err = chooseGeonameID(geonameID,
		rv.RegisteredCountryGeonameID,
		rv.RepresentedCountryGeonameID)

	return rv, err
}

// NewCSV returns a new source which reads MaxMind GeoLite2 City CSV
// files.
//
//	Identifier: csv
//	Website: https://dev.maxmind.com/geoip/docs/databases/city-and-country
//
// blocksPath is a path to network blocks file (for example,
// GeoLite2-City-Blocks-IPv4.csv), locationsPath is a path to
// locations file (GeoLite2-City-Locations-en.csv). Both files are read
// using their headers, so order of columns does not matter. Files with
// .gz suffix are decompressed on the fly.
//
// If paths are empty, default MaxMind names are used.
func NewCSV(fs afero.Fs, blocksPath, locationsPath string, logger geolib.Logger) geolib.Source {
	if blocksPath == "" {
		blocksPath = csvDefaultBlocksFileName
	}

	if locationsPath == "" {
		locationsPath = csvDefaultLocationsFileName
	}

	return &csvSource{
		fs:            fs,
		blocksPath:    blocksPath,
		locationsPath: locationsPath,
		logger:        logger,
	}
}
