package geolib

import (
	"context"
	"net/http"
)

// Source is a dataset loader. Each call of Load has to return a new
// dataset which is not shared with any previously returned one.
type Source interface {
	Name() string
	Load(context.Context) (*Dataset, error)
}

// EntityTable fetches location entities by their geoname id. Absence of
// the entity is not an error: implementations return false instead.
type EntityTable interface {
	Lookup(ctx context.Context, geonameID int64) (LocationEntity, bool, error)
}

type Logger interface {
	LookupError(address string, err error)
	LookupWarning(address string, err error)
	BuildWarning(name string, err error)
	UpdateInfo(name string, msg string)
	UpdateError(name string, err error)
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}
