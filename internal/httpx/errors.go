package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/assettrack/internal/images"
	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code, RequestID: middleware.GetReqID(r.Context())})
}

// fail maps a service error onto its HTTP status. Store failures are logged
// and reported without detail.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, orders.ErrValidation), errors.Is(err, images.ErrInvalidImage):
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, orders.ErrConflict):
		writeError(w, r, http.StatusConflict, "CONFLICT", err.Error())
	default:
		obs.Logger.Error("request_failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "STORE_ERROR", "internal error")
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", orders.ErrValidation, fmt.Sprintf(format, args...))
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return invalid("invalid json: %v", err)
	}
	return nil
}
