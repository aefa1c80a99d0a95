package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apimw "github.com/merchantkit/voucher-service/internal/api/middleware"
	"github.com/merchantkit/voucher-service/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceError maps the expected service failures to HTTP statuses;
// anything unrecognized is logged and reported as a storage failure.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateCode):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrGenerationExhausted):
		writeError(w, http.StatusConflict, "could not generate a unique code")
	default:
		logger.Error("storage failure", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failure")
	}
}

// tenantFrom pulls the authenticated tenant out of the request context.
func tenantFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, ok := apimw.TenantID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant")
	}
	return tenantID, ok
}

func pathID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
