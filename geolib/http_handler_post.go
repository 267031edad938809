package geolib

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"
)

var handlePostRequestJSONSchema = func() *jsonschema.Schema {
	data := `{
        "type": "object",
        "required": [
            "ips"
        ],
        "additionalProperties": false,
        "properties": {
            "ips": {
                "type": "array",
                "minItems": 1,
                "maxItems": 1024,
                "items": {
                    "type": "string",
                    "minLength": 1,
                    "maxLength": 64
                }
            }
        }
    }`

	rv := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(data), rv); err != nil {
		panic(err)
	}

	return rv
}()

type handlePostRequest struct {
	IPs []string `json:"ips"`
}

type handlePostResult struct {
	IP    string            `json:"ip"`
	Data  *ResolvedLocation `json:"data,omitempty"`
	Error *httpError        `json:"error,omitempty"`
}

type handlePostResponse struct {
	Results []handlePostResult `json:"results"`
}

func (h httpHandler) handlePost(w http.ResponseWriter, req *http.Request) {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		h.sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return
	}

	bodyBytes, err := ioutil.ReadAll(req.Body)

	req.Body.Close()

	if err != nil {
		h.sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return
	}

	errs, err := handlePostRequestJSONSchema.ValidateBytes(req.Context(), bodyBytes)
	if err != nil {
		h.sendError(w, err, "Cannot validate body", http.StatusBadRequest)

		return
	}

	if len(errs) > 0 {
		h.sendError(w, errs[0], "Invalid request body", http.StatusBadRequest)

		return
	}

	parsedRequest := &handlePostRequest{}
	if err := json.Unmarshal(bodyBytes, parsedRequest); err != nil {
		h.sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	resolved, err := h.resolver.ResolveAll(req.Context(), parsedRequest.IPs)
	if err != nil {
		h.sendResolveError(w, err)

		return
	}

	response := handlePostResponse{
		Results: make([]handlePostResult, 0, len(resolved)),
	}

	for i := range resolved {
		item := handlePostResult{
			IP: resolved[i].Address,
		}

		if resolved[i].OK() {
			item.Data = &resolved[i].Location
		} else {
			item.Error = newResolveHTTPError(resolved[i].Err)
		}

		response.Results = append(response.Results, item)
	}

	h.encodeJSON(w, response)
}
