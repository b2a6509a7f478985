/*
handlers.go - HTTP API handlers for the time accounting engine

PURPOSE:
  Exposes the tracker service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the tracker and the engine.

ENDPOINTS:
  Balance:
    GET    /api/subjects/{id}/balance              Snapshot at now (or ?at=RFC3339)
    GET    /api/subjects/{id}/live                 SSE stream of snapshots

  Events:
    GET    /api/subjects/{id}/events               Events in ?from..?to (default: this month)
    POST   /api/subjects/{id}/events               Record START / END
    DELETE /api/subjects/{id}/events/{eventID}     Delete an event

  Summaries:
    GET    /api/subjects/{id}/week                 Week of ?date
    GET    /api/subjects/{id}/month                Month ?month=YYYY-MM
    GET    /api/subjects/{id}/days                 Day rows of ?month

  Holidays:
    GET    /api/subjects/{id}/holidays             Public + custom for ?year
    POST   /api/subjects/{id}/holidays             Declare a custom holiday
    DELETE /api/subjects/{id}/holidays/{hid}       Delete a custom holiday
    POST   /api/subjects/{id}/holidays/{hid}/disable
    POST   /api/subjects/{id}/holidays/{hid}/enable

  Periods:
    GET    /api/subjects/{id}/periods              Closed months, newest first
    POST   /api/subjects/{id}/periods/close        Close ?month now

  Rules:
    GET    /api/rules                              Active rule set

ARCHITECTURE:
  Handler holds the tracker service (store, rules, cache, clock) and the
  live hub. Handlers never touch the store directly.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Event or holiday not found
  - 409: Duplicate event, month not over
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The subject id in the path is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - live.go: Server-sent events stream
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/worktime/tracker"
	"github.com/warp/worktime/worktime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	svc    *tracker.Service
	hub    *tracker.Hub
	logger zerolog.Logger

	// done ends every live stream on shutdown.
	done      chan struct{}
	closeOnce sync.Once
}

// NewHandler creates a new handler. hub may be nil, in which case the live
// endpoint is unavailable.
func NewHandler(svc *tracker.Service, hub *tracker.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		hub:    hub,
		logger: logger.With().Str("component", "api").Logger(),
		done:   make(chan struct{}),
	}
}

// CloseStreams ends all open live streams. Safe to call more than once.
func (h *Handler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.done) })
}

// =============================================================================
// BALANCE
// =============================================================================

// GetBalance returns the balance snapshot of a subject.
// GET /api/subjects/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	now := h.svc.Now()
	if s := r.URL.Query().Get("at"); s != "" {
		at, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid at (use RFC3339)", err)
			return
		}
		now = at
	}

	snap, err := h.svc.Balance(ctx, subject, now)
	if err != nil {
		h.writeServiceError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(subject, snap))
}

// =============================================================================
// EVENTS
// =============================================================================

// ListEvents returns the events of a subject between two dates.
// GET /api/subjects/{id}/events?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	month := worktime.MonthPeriod(h.svc.Today())
	from, err := dateQuery(r, "from", month.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM-DD)", err)
		return
	}
	to, err := dateQuery(r, "to", month.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM-DD)", err)
		return
	}
	p, err := worktime.NewPeriod(from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	events, err := h.svc.Events(ctx, subject, p)
	if err != nil {
		h.writeServiceError(w, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordEvent appends a START or END event.
// POST /api/subjects/{id}/events
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	eventType, err := worktime.ParseEventType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event type (use start or end)", err)
		return
	}
	reason, err := worktime.ParseReason(req.Reason)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reason", err)
		return
	}

	res, err := h.svc.RecordEvent(ctx, subject, tracker.RecordRequest{
		Type:   eventType,
		Reason: reason,
		At:     req.At,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to record event", err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordEventResponse{
		Status:      "created",
		Event:       toEventDTO(res.Event),
		Diagnostics: res.Diagnostics,
	})
}

// DeleteEvent removes an event.
// DELETE /api/subjects/{id}/events/{eventID}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)
	eventID := worktime.EventID(chi.URLParam(r, "eventID"))

	e, err := h.svc.DeleteEvent(ctx, subject, eventID)
	if err != nil {
		h.writeServiceError(w, "Failed to delete event", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"event":  toEventDTO(e),
	})
}

// =============================================================================
// SUMMARIES
// =============================================================================

// GetWeek returns the week containing ?date (default: today).
// GET /api/subjects/{id}/week
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	d, err := dateQuery(r, "date", h.svc.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	ws, err := h.svc.Week(ctx, subject, d, h.svc.Now())
	if err != nil {
		h.writeServiceError(w, "Failed to compute week", err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekDTO(ws))
}

// GetMonth returns the month ?month=YYYY-MM (default: this month).
// GET /api/subjects/{id}/month
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	d, err := monthQuery(r, h.svc.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	ms, err := h.svc.Month(ctx, subject, d, h.svc.Now())
	if err != nil {
		h.writeServiceError(w, "Failed to compute month", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDTO(ms))
}

// ListDays returns one row per day of ?month.
// GET /api/subjects/{id}/days
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	d, err := monthQuery(r, h.svc.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	days, err := h.svc.Days(ctx, subject, worktime.MonthPeriod(d), h.svc.Now())
	if err != nil {
		h.writeServiceError(w, "Failed to compute days", err)
		return
	}
	writeJSON(w, http.StatusOK, toDayDTOs(days))
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the public and custom holidays of ?year.
// GET /api/subjects/{id}/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	year := h.svc.Today().Year
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	views, err := h.svc.Holidays(ctx, subject, year)
	if err != nil {
		h.writeServiceError(w, "Failed to list holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(views))
}

// CreateHoliday declares a custom holiday.
// POST /api/subjects/{id}/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hol, err := h.svc.AddHoliday(ctx, subject, req.Date, req.Name)
	if err != nil {
		h.writeServiceError(w, "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "created",
		"holiday": toHolidayDTO(hol, false),
	})
}

// DeleteHoliday removes a custom holiday.
// DELETE /api/subjects/{id}/holidays/{hid}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)
	id := chi.URLParam(r, "hid")

	if err := h.svc.DeleteHoliday(ctx, subject, id); err != nil {
		h.writeServiceError(w, "Failed to delete holiday", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DisableHoliday turns a public holiday into a working day.
// POST /api/subjects/{id}/holidays/{hid}/disable
func (h *Handler) DisableHoliday(w http.ResponseWriter, r *http.Request) {
	h.setHolidayEnabled(w, r, false)
}

// EnableHoliday restores a disabled public holiday.
// POST /api/subjects/{id}/holidays/{hid}/enable
func (h *Handler) EnableHoliday(w http.ResponseWriter, r *http.Request) {
	h.setHolidayEnabled(w, r, true)
}

func (h *Handler) setHolidayEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	ctx := r.Context()
	subject := subjectParam(r)
	id := chi.URLParam(r, "hid")

	if err := h.svc.SetPublicHolidayEnabled(ctx, subject, id, enabled); err != nil {
		h.writeServiceError(w, "Failed to update holiday", err)
		return
	}

	status := "disabled"
	if enabled {
		status = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "id": id})
}

// =============================================================================
// PERIOD ENDPOINTS
// =============================================================================

// ListPeriods returns the closed months of a subject.
// GET /api/subjects/{id}/periods
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	closes, err := h.svc.PeriodCloses(r.Context(), subjectParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodCloseDTOs(closes))
}

// ClosePeriod closes ?month (default: previous month) without waiting for
// the scheduler.
// POST /api/subjects/{id}/periods/close
func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	d, err := monthQuery(r, h.svc.Today().StartOfMonth().AddMonths(-1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	pc, err := h.svc.CloseMonth(ctx, subject, worktime.MonthPeriod(d), h.svc.Now())
	if err != nil {
		h.writeServiceError(w, "Failed to close period", err)
		return
	}
	if pc == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_closed"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "closed",
		"period": toPeriodCloseDTOs([]worktime.PeriodClose{*pc})[0],
	})
}

// =============================================================================
// RULES
// =============================================================================

// GetRules returns the active rule set.
// GET /api/rules
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toRulesDTO(h.svc.RuleSet()))
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func subjectParam(r *http.Request) worktime.SubjectID {
	return worktime.SubjectID(chi.URLParam(r, "id"))
}

func dateQuery(r *http.Request, key string, fallback worktime.Date) (worktime.Date, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	return worktime.ParseDate(s)
}

// monthQuery parses ?month=YYYY-MM to the first day of that month.
func monthQuery(r *http.Request, fallback worktime.Date) (worktime.Date, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		return fallback.StartOfMonth(), nil
	}
	d, err := worktime.ParseDate(s + "-01")
	if err != nil {
		return worktime.Date{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return d, nil
}

// writeServiceError maps engine and tracker errors to a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case worktime.IsClientError(err):
		status = http.StatusBadRequest
	case worktime.IsNotFound(err):
		status = http.StatusNotFound
	case worktime.IsConflict(err), errors.Is(err, tracker.ErrPeriodNotOver):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(message)
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
