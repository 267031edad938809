package geolib

import (
	"net/http"
)

const httpAddressParameter = "ip"

type handleGetResponse struct {
	Data    ResolvedLocation `json:"data"`
	Country *CountryDetails  `json:"country,omitempty"`
}

func (h httpHandler) handleGet(w http.ResponseWriter, req *http.Request) {
	address := req.URL.Query().Get(httpAddressParameter)
	if address == "" {
		address = req.Header.Get(httpAddressParameter)
	}

	if address == "" {
		h.sendError(w, nil, "No IP address provided", http.StatusBadRequest)

		return
	}

	resolved, err := h.resolver.Resolve(req.Context(), address)
	if err != nil {
		h.sendResolveError(w, err)

		return
	}

	response := handleGetResponse{
		Data: resolved,
	}

	if country, ok := LookupCountry(resolved.CountryISOCode); ok {
		response.Country = &country
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) handleGetStats(w http.ResponseWriter, req *http.Request) {
	response := struct {
		Result *UsageStats `json:"result"`
	}{
		Result: h.resolver.Stats(),
	}

	h.encodeJSON(w, response)
}
