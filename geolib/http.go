package geolib

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// httpStatusClientClosedRequest is a nginx convention for requests
// cancelled by a client.
const httpStatusClientClosedRequest = 499

type httpHandler struct {
	resolver *Resolver
}

func (h httpHandler) encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	w.Header().Set("Content-Type", "application/json")
	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func (h httpHandler) sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	e := &httpError{
		message:    message,
		statusCode: statusCode,
		err:        err,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	h.encodeJSON(w, e)
}

func (h httpHandler) sendResolveError(w http.ResponseWriter, err error) {
	e := newResolveHTTPError(err)

	h.sendError(w, err, e.message, e.statusCode)
}

func newResolveHTTPError(err error) *httpError {
	e := &httpError{
		err: err,
	}

	switch {
	case errors.Is(err, ErrInvalidAddress):
		e.message = "Incorrect IP address"
		e.statusCode = http.StatusBadRequest
	case errors.Is(err, ErrNoMatch):
		e.message = "No data for this IP address"
		e.statusCode = http.StatusNotFound
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrResolverShutdown):
		e.message = "Cannot resolve IP address yet"
		e.statusCode = http.StatusServiceUnavailable
	case errors.Is(err, ErrContextIsClosed), errors.Is(err, context.Canceled):
		e.message = "Request was cancelled"
		e.statusCode = httpStatusClientClosedRequest
	case errors.Is(err, ErrMissingEntity):
		e.message = "Dataset is inconsistent"
		e.statusCode = http.StatusInternalServerError
	default:
		e.message = "Cannot resolve IP address"
		e.statusCode = http.StatusInternalServerError
	}

	return e
}

// NewHTTPHandler returns an HTTP API of the resolver:
//
//	GET /?ip=1.2.3.4    resolves a single address. Address can be also
//	                    passed in 'ip' header.
//	POST /              resolves a batch: {"ips": ["1.2.3.4", ...]}
//	GET /stats          returns usage statistics.
func NewHTTPHandler(resolver *Resolver) http.Handler {
	handler := httpHandler{
		resolver: resolver,
	}
	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.Recoverer)

	router.Get("/", handler.handleGet)
	router.Post("/", handler.handlePost)
	router.Get("/stats", handler.handleGetStats)

	router.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		handler.sendError(w, nil, "This HTTP method is not allowed", http.StatusMethodNotAllowed)
	})
	router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handler.sendError(w, nil, "Not found", http.StatusNotFound)
	})

	return router
}
