package handler

import (
	"io"
	"net/http"
)

// maxBodyBytes caps the request body read by ServeHTTP.
const maxBodyBytes = 1 << 20

// ServeHTTP adapts Handle to net/http. A body that cannot be read, or is larger
// than maxBodyBytes, is treated as malformed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err == nil {
			body = b
		}
	}

	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	resp := h.Handle(r.Context(), Request{
		Method:    r.Method,
		Headers:   headers,
		Body:      body,
		RequestID: r.Header.Get("X-Request-ID"),
	})

	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
