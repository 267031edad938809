package sources

import "errors"

var (
	// ErrNoGeonameID is returned for network rows which have neither
	// geoname_id nor any of country geoname ids.
	ErrNoGeonameID = errors.New("network has no geoname id")

	// ErrMissingColumn is returned if CSV header has no required column.
	ErrMissingColumn = errors.New("required column is missing")

	// ErrLicenseKeyIsRequired is returned if you are trying to
	// initialize a source which requires some license key to work.
	ErrLicenseKeyIsRequired = errors.New("license key is required")

	// ErrNoFile is returned if source has downloaded an archive with
	// a dataset but this archive has no expected files.
	ErrNoFile = errors.New("cannot find a dataset file in downloaded archive")

	// ErrChecksumMismatch is returned if downloaded file does not match
	// its published checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
