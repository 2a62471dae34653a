package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/services/dashboard"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Codes for failures that carry no error kind.
const (
	codeUnknownSymbol = "unknown_symbol"
	codeNoData        = "no_data"
	codeNotFound      = "not_found"
	codeInternal      = "internal_error"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WritePNG writes a rendered chart.
func WritePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// statusForError maps a service failure to an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrUnknownSymbol):
		return http.StatusNotFound, codeUnknownSymbol
	case errors.Is(err, dashboard.ErrNoChartData):
		return http.StatusNotFound, codeNoData
	}

	kind, ok := common.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, codeInternal
	}
	switch kind {
	case common.KindInvalidInput:
		return http.StatusBadRequest, string(kind)
	case common.KindQuoteProvider:
		return http.StatusBadGateway, string(kind)
	case common.KindWarehouse:
		return http.StatusServiceUnavailable, string(kind)
	case common.KindTimeout:
		return http.StatusGatewayTimeout, string(kind)
	}
	return http.StatusInternalServerError, codeInternal
}

// writeServiceError maps err to a status, logs server-side failures and
// writes the error body.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn().
			Str("path", r.URL.Path).
			Str("code", code).
			Err(err).
			Msg("Request failed")
	}
	WriteErrorWithCode(w, status, err.Error(), code)
}
