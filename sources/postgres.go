package sources

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/9seconds/geocidr/geolib"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	_ "github.com/jackc/pgx/v5/stdlib" // registers pgx driver
)

const (
	postgresNetworksTable = "ip_to_geo_id"
	postgresEntitiesTable = "geo_id_to_name"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar) // nolint: gochecknoglobals

var (
	postgresNetworkColumns = []string{ // nolint: gochecknoglobals
		"network::text AS network",
		"geoname_id",
		"registered_country_geoname_id",
		"represented_country_geoname_id",
		"is_anonymous_proxy",
		"is_satellite_provider",
		"postal_code",
		"latitude",
		"longitude",
		"accuracy_radius",
	}
	postgresEntityColumns = []string{ // nolint: gochecknoglobals
		"geoname_id",
		"locale_code",
		"continent_code",
		"continent_name",
		"country_iso_code",
		"country_name",
		"subdivision_1_iso_code",
		"subdivision_1_name",
		"subdivision_2_iso_code",
		"subdivision_2_name",
		"city_name",
		"metro_code",
		"time_zone",
		"is_in_european_union",
	}
)

type postgresNetworkRow struct {
	Network                     string          `db:"network"`
	GeonameID                   sql.NullInt64   `db:"geoname_id"`
	RegisteredCountryGeonameID  sql.NullInt64   `db:"registered_country_geoname_id"`
	RepresentedCountryGeonameID sql.NullInt64   `db:"represented_country_geoname_id"`
	IsAnonymousProxy            sql.NullBool    `db:"is_anonymous_proxy"`
	IsSatelliteProvider         sql.NullBool    `db:"is_satellite_provider"`
	PostalCode                  sql.NullString  `db:"postal_code"`
	Latitude                    sql.NullFloat64 `db:"latitude"`
	Longitude                   sql.NullFloat64 `db:"longitude"`
	AccuracyRadius              sql.NullInt64   `db:"accuracy_radius"`
}

func (p postgresNetworkRow) networkRange() (geolib.NetworkRange, error) {
	rv := geolib.NetworkRange{
		Network:                     p.Network,
		RegisteredCountryGeonameID:  nullInt64(p.RegisteredCountryGeonameID),
		RepresentedCountryGeonameID: nullInt64(p.RepresentedCountryGeonameID),
		IsAnonymousProxy:            p.IsAnonymousProxy.Bool,
		IsSatelliteProvider:         p.IsSatelliteProvider.Bool,
		PostalCode:                  p.PostalCode.String,
		Latitude:                    nullFloat64(p.Latitude),
		Longitude:                   nullFloat64(p.Longitude),
		AccuracyRadius:              nullInt64(p.AccuracyRadius),
	}

	geonameID, err := chooseGeonameID(nullInt64(p.GeonameID),
		rv.RegisteredCountryGeonameID,
		rv.RepresentedCountryGeonameID)
	rv.GeonameID = geonameID

	return rv, err
}

type postgresEntityRow struct {
	GeonameID           int64          `db:"geoname_id"`
	LocaleCode          sql.NullString `db:"locale_code"`
	ContinentCode       sql.NullString `db:"continent_code"`
	ContinentName       sql.NullString `db:"continent_name"`
	CountryISOCode      sql.NullString `db:"country_iso_code"`
	CountryName         sql.NullString `db:"country_name"`
	Subdivision1ISOCode sql.NullString `db:"subdivision_1_iso_code"`
	Subdivision1Name    sql.NullString `db:"subdivision_1_name"`
	Subdivision2ISOCode sql.NullString `db:"subdivision_2_iso_code"`
	Subdivision2Name    sql.NullString `db:"subdivision_2_name"`
	CityName            sql.NullString `db:"city_name"`
	MetroCode           sql.NullString `db:"metro_code"`
	TimeZone            sql.NullString `db:"time_zone"`
	IsInEuropeanUnion   sql.NullBool   `db:"is_in_european_union"`
}

func (p postgresEntityRow) entity() geolib.LocationEntity {
	return geolib.LocationEntity{
		GeonameID:           p.GeonameID,
		LocaleCode:          p.LocaleCode.String,
		ContinentCode:       p.ContinentCode.String,
		ContinentName:       p.ContinentName.String,
		CountryISOCode:      p.CountryISOCode.String,
		CountryName:         p.CountryName.String,
		Subdivision1ISOCode: p.Subdivision1ISOCode.String,
		Subdivision1Name:    p.Subdivision1Name.String,
		Subdivision2ISOCode: p.Subdivision2ISOCode.String,
		Subdivision2Name:    p.Subdivision2Name.String,
		CityName:            p.CityName.String,
		MetroCode:           p.MetroCode.String,
		TimeZone:            p.TimeZone.String,
		IsInEuropeanUnion:   p.IsInEuropeanUnion.Bool,
	}
}

type postgresEntityTable struct {
	db *sql.DB
}

func (p postgresEntityTable) Lookup(ctx context.Context, geonameID int64) (geolib.LocationEntity, bool, error) {
	query, args, err := psql.Select(postgresEntityColumns...).
		From(postgresEntitiesTable).
		Where(squirrel.Eq{"geoname_id": geonameID}).
		Limit(1).
		ToSql()
	if err != nil {
		return geolib.LocationEntity{}, false, fmt.Errorf("cannot build a query: %w", err)
	}

	row := postgresEntityRow{}

	err = sqlscan.Get(ctx, p.db, &row, query, args...)

	switch {
	case sqlscan.NotFound(err):
		return geolib.LocationEntity{}, false, nil
	case err != nil:
		return geolib.LocationEntity{}, false, fmt.Errorf("cannot fetch entity %d: %w", geonameID, err)
	}

	return row.entity(), true, nil
}

type postgresSource struct {
	db       *sql.DB
	entities *geolib.CachingEntityTable
	logger   geolib.Logger
}

func (p *postgresSource) Name() string {
	return NamePostgres
}

func (p *postgresSource) Load(ctx context.Context) (*geolib.Dataset, error) {
	ranges, err := p.loadRanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load networks: %w", err)
	}

	dataset := &geolib.Dataset{
		Ranges: ranges,
	}

	if p.entities != nil {
		dataset.Entities = p.entities

		return dataset, nil
	}

	entities, err := p.loadEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load entities: %w", err)
	}

	dataset.Entities = entities

	return dataset, nil
}

func (p *postgresSource) Close() error {
	if p.entities != nil {
		p.entities.Close() // nolint: errcheck
	}

	return p.db.Close()
}

func (p *postgresSource) loadRanges(ctx context.Context) ([]geolib.NetworkRange, error) {
	query, args, err := psql.Select(postgresNetworkColumns...).
		From(postgresNetworksTable).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("cannot build a query: %w", err)
	}

	rows := []postgresNetworkRow{}

	if err := sqlscan.Select(ctx, p.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("cannot fetch networks: %w", err)
	}

	rv := make([]geolib.NetworkRange, 0, len(rows))

	for _, row := range rows {
		rng, err := row.networkRange()
		if err != nil {
			p.logger.BuildWarning(p.Name(), fmt.Errorf("network %s is skipped: %w", row.Network, err))

			continue
		}

		rv = append(rv, rng)
	}

	return rv, nil
}

func (p *postgresSource) loadEntities(ctx context.Context) (geolib.MemoryEntityTable, error) {
	query, args, err := psql.Select(postgresEntityColumns...).
		From(postgresEntitiesTable).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("cannot build a query: %w", err)
	}

	rows := []postgresEntityRow{}

	if err := sqlscan.Select(ctx, p.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("cannot fetch entities: %w", err)
	}

	rv := make(geolib.MemoryEntityTable, len(rows))

	for _, row := range rows {
		if _, ok := rv[row.GeonameID]; !ok {
			rv[row.GeonameID] = row.entity()
		}
	}

	return rv, nil
}

func nullInt64(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}

	return geolib.Int64(value.Int64)
}

func nullFloat64(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}

	return geolib.Float64(value.Float64)
}

// OpenPostgres opens a connection pool to PostgreSQL with pgx driver
// and checks that database is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open a database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot connect to a database: %w", err)
	}

	return db, nil
}

// NewPostgres returns a new source which reads networks and location
// entities from PostgreSQL.
//
//	Identifier: postgres
//
// Networks are read from ip_to_geo_id table, location entities are
// read from geo_id_to_name table. Columns follow MaxMind GeoLite2 CSV
// layout, network column is expected to have cidr type.
//
// If lazy is true, location entities are not loaded in advance but
// fetched on demand and cached in memory for cacheTTL. The cache lives
// as long as the source and is shared by all datasets it loads, so
// changed entities become visible after cacheTTL. Otherwise, the
// whole geo_id_to_name table is loaded on each update.
func NewPostgres(db *sql.DB,
	lazy bool,
	cacheItems uint,
	cacheTTL time.Duration,
	logger geolib.Logger) geolib.Source {
	source := &postgresSource{
		db:     db,
		logger: logger,
	}

	if lazy {
		source.entities = geolib.NewCachingEntityTable(postgresEntityTable{db: db},
			cacheItems,
			cacheTTL)
	}

	return source
}
