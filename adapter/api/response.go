package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
	savingsDomain "github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/internal/session"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalogDomain.ErrPlanNotFound),
		errors.Is(err, savingsDomain.ErrSubscriptionNotFound),
		errors.Is(err, settlement.ErrNoCheckout),
		errors.Is(err, monitor.ErrNothingDue):
		return http.StatusNotFound
	case errors.Is(err, catalogDomain.ErrInvalidPlan),
		errors.Is(err, session.ErrRoleUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, catalogDomain.ErrPlanExists),
		errors.Is(err, savingsDomain.ErrSubscriptionNotActive),
		errors.Is(err, savingsDomain.ErrInvalidTransition),
		errors.Is(err, settlement.ErrSettlementInProgress),
		errors.Is(err, settlement.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, cli.ErrAdminRequired):
		return http.StatusForbidden
	case errors.Is(err, cli.ErrNotInitialized),
		errors.Is(err, settlement.ErrSessionClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
