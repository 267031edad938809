package sources

const (
	// Identifier for CSV files on a filesystem.
	NameCSV = "csv"

	// Identifier for MaxMind DB files.
	NameMMDB = "mmdb"

	// Identifier for PostgreSQL database.
	NamePostgres = "postgres"

	// Identifier for CSV databases downloaded from MaxMind.
	NameMaxmindCSV = "maxmind_csv"
)
