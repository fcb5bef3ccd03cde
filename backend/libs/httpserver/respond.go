package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"evgrid/backend/libs/grid"
)

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes the standard error body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, grid.ErrorBody{Error: message, Code: code})
}

// WriteGridError classifies err with the grid taxonomy and writes it.
func WriteGridError(w http.ResponseWriter, err error) {
	WriteError(w, grid.HTTPStatus(err), grid.Code(err), err.Error())
}

// DecodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &grid.ValidationError{Field: "body", Reason: "is not valid json"}
	}
	return nil
}

// Method rejects requests whose method is not expected.
func Method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

// Methods dispatches on request method.
func Methods(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.Method]; ok {
			h(w, r)
			return
		}
		for m := range handlers {
			w.Header().Add("Allow", m)
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HealthHandler reports a static healthy body merged with extra fields.
func HealthHandler(service string, extra func() map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "healthy",
			"service": service,
		}
		if extra != nil {
			for k, v := range extra() {
				body[k] = v
			}
		}
		WriteJSON(w, http.StatusOK, body)
	}
}
