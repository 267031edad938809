package main

import (
	"crypto/subtle"
	"net/http"
)

const basicAuthRealm = `Basic realm="geocidr"`

type basicAuthMiddleware struct {
	handler  http.Handler
	user     []byte
	password []byte
}

func (b *basicAuthMiddleware) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if b.authenticated(req) {
		b.handler.ServeHTTP(w, req)

		return
	}

	w.Header().Set("WWW-Authenticate", basicAuthRealm)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Authentication is required"}`)) // nolint: errcheck
}

func (b *basicAuthMiddleware) authenticated(req *http.Request) bool {
	user, password, ok := req.BasicAuth()
	if !ok {
		return false
	}

	userMatch := subtle.ConstantTimeCompare(b.user, []byte(user))
	passwordMatch := subtle.ConstantTimeCompare(b.password, []byte(password))

	return userMatch&passwordMatch == 1
}
