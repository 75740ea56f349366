package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

// errorBody is the envelope of every failed request.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// notFoundBody is returned when a load matches no passengers.
type notFoundBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type okBody struct {
	Status string `json:"status"`
}

func jsonResponse(status int, v interface{}) Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{},
		Body:       body,
	}
}

func errorResponse(status int, message, details string) Response {
	return jsonResponse(status, errorBody{Error: message, Details: details})
}

func internalError(err error) Response {
	return errorResponse(http.StatusInternalServerError, "Internal server error", err.Error())
}

// applyCORS sets the headers every response carries. The request origin is
// echoed only when it is on the allow-list.
func (h *Handler) applyCORS(headers map[string]string, origin string) {
	allowOrigin := h.cfg.CORS.ResolvedDefaultOrigin()
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	for _, allowed := range h.cfg.CORS.AllowedOrigins {
		if origin != "" && origin == allowed {
			allowOrigin = origin
			break
		}
	}

	headers["Content-Type"] = "application/json"
	headers["Access-Control-Allow-Origin"] = allowOrigin
	headers["Access-Control-Allow-Headers"] = "Content-Type"
	headers["Access-Control-Allow-Methods"] = "POST, OPTIONS"
	headers["Vary"] = "Origin"
}
