/*
handlers.go - HTTP handlers of the ops API

ERROR MAPPING:
  generic.ErrMaintenanceMode        -> 503
  validation / invalid transition   -> 400
  not found                         -> 404
  already exists / concurrent write -> 409
  anything else                     -> 500
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/report"
	"github.com/CHAISAHR/saleaveapp-sub000/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Pinger is implemented by stores that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Balances  *leave.BalanceService
	Rollover  *leave.RolloverProcessor
	Records   leave.BalanceStore
	Runtime   *config.Runtime
	Scheduler *scheduler.Scheduler // optional
	Pinger    Pinger               // optional
	Clock     generic.Clock
	Log       *log.Logger
}

var validate = validator.New()

// =============================================================================
// HEALTH & MAINTENANCE
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"maintenance": h.Runtime.MaintenanceMode(),
	})
}

func (h *Handler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MaintenanceResponse{Enabled: h.Runtime.MaintenanceMode()})
}

func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req MaintenanceRequest
	if !decode(w, r, &req) {
		return
	}
	h.Runtime.SetMaintenanceMode(*req.Enabled)
	h.Log.WithContext(r.Context()).WithField("enabled", *req.Enabled).Warn("maintenance mode changed")
	writeJSON(w, http.StatusOK, MaintenanceResponse{Enabled: *req.Enabled})
}

// =============================================================================
// BALANCES
// =============================================================================

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	rec, balances, err := h.Balances.Balances(r.Context(), email, year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(*rec, balances, h.Clock.Today()))
}

func (h *Handler) GetTermination(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	res, err := h.Balances.Termination(r.Context(), email, year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TerminationResponse{
		Email:   email,
		Year:    year,
		Status:  string(res.Status),
		Base:    res.Base.StringFixed(generic.EnginePlaces),
		TopUp:   res.TopUp.StringFixed(generic.EnginePlaces),
		Balance: toAmountDTO(res.Balance),
	})
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !decode(w, r, &req) {
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid value", err)
		return
	}

	email := chi.URLParam(r, "email")
	rec, err := h.Balances.Adjust(r.Context(), email, req.Year, req.Field, value, req.ActorID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(*rec, leave.AllBalances(*rec, leave.AccrualReference(rec.Year, h.Clock.Today())), h.Clock.Today()))
}

// =============================================================================
// ROLLOVER, REPORTS, SCHEDULER
// =============================================================================

func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	var req RolloverRequest
	if !decode(w, r, &req) {
		return
	}

	summary, err := h.Rollover.Rollover(r.Context(), req.FromYear, req.ToYear, req.ActorID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return
	}

	records, err := h.Records.ListBalances(r.Context(), year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="balances-%d.xlsx"`, year))
	if err := report.Write(w, records, h.Clock.Today()); err != nil {
		h.Log.WithContext(r.Context()).WithError(err).Error("report write failed")
	}
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusNotFound, "scheduler not running", nil)
		return
	}
	resp := SchedulerResponse{Runs: h.Scheduler.Runs()}
	if next := h.Scheduler.NextRunTime(); !next.IsZero() {
		resp.NextRun = &next
	}
	if resp.Runs == nil {
		resp.Runs = []scheduler.Run{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// yearParam reads ?year=, defaulting to the current year.
func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return h.Clock.Today().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return 0, false
	}
	return year, true
}

// decode reads a JSON body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrMaintenanceMode):
		return http.StatusServiceUnavailable
	case generic.IsValidation(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := http.StatusText(status)
	if status == http.StatusInternalServerError {
		h.Log.WithContext(r.Context()).WithError(err).Error("request failed")
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
