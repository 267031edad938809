package geolib

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrInvalidAddress is returned if a given text is not an IPv4
	// address. This is a problem of the caller.
	ErrInvalidAddress = errors.New("invalid ipv4 address")

	// ErrNoMatch is returned if an address is valid but none of the
	// known networks contains it.
	ErrNoMatch = errors.New("address is not present in any known range")

	// ErrMissingEntity is returned if a matched network refers to a
	// geoname id which has no location entity. This is a dataset
	// integrity problem, not a problem of the caller.
	ErrMissingEntity = errors.New("location entity is missing")

	// ErrEntityLookup is returned if entity table has failed to fetch
	// an entity, for example because of database connectivity.
	ErrEntityLookup = errors.New("cannot lookup location entity")

	// ErrMalformedNetwork marks dataset entries which cannot be parsed
	// as IPv4 CIDR blocks. Such entries are skipped on index build.
	ErrMalformedNetwork = errors.New("malformed network")

	// ErrDuplicateNetwork marks dataset entries which have exactly the
	// same base address and prefix length as some previous entry.
	ErrDuplicateNetwork = errors.New("duplicate network")

	ErrNotReady         = errors.New("dataset is not loaded yet")
	ErrResolverShutdown = errors.New("resolver was shutdown")
	ErrContextIsClosed  = errors.New("context is closed")
)

type jsonHTTPError struct {
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}

type httpError struct {
	message    string
	err        error
	statusCode int
}

func (h *httpError) Message() string {
	if h == nil {
		return ""
	}

	return h.message
}

func (h *httpError) Err() string {
	if err := errors.Unwrap(h); err != nil {
		return err.Error()
	}

	return ""
}

func (h *httpError) StatusCode() int {
	if h != nil && h.statusCode != 0 {
		return h.statusCode
	}

	return http.StatusInternalServerError
}

func (h *httpError) Unwrap() error {
	if h == nil {
		return nil
	}

	return h.err
}

func (h *httpError) Error() string {
	switch {
	case h == nil:
		return ""
	case h.err != nil && h.message != "":
		return h.message + ": " + h.err.Error()
	case h.err != nil:
		return h.err.Error()
	}

	return h.message
}

func (h *httpError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&jsonHTTPError{
		Error:   h.Message(),
		Context: h.Err(),
	})
}

var (
	// ErrCircuitBreakerOpened is returned by HTTP client if a remote
	// side has failed too many times in a row.
	ErrCircuitBreakerOpened = errors.New("circuit breaker is opened")

	// ErrCircuitBreakerIgnore can be returned by a circuit breaker
	// callback to mark a failure which is not a fault of the remote
	// side. Such failures are not counted.
	ErrCircuitBreakerIgnore = errors.New("failure is ignored by circuit breaker")
)
