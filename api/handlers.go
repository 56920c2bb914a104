package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/flow"
	"github.com/vainnor/fatigue-report/models"
	"github.com/vainnor/fatigue-report/sheets"
	"github.com/vainnor/fatigue-report/types"
)

// Handler serves the report form on top of the flow controller
type Handler struct {
	flow   *flow.Controller
	store  *SessionStore
	logger *zap.Logger
	now    func() time.Time

	expired atomic.Int64
}

func NewHandler(controller *flow.Controller, store *SessionStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{flow: controller, store: store, logger: logger, now: time.Now}
}

// Index renders the current step of the caller's session
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	s, release := h.session(w, r)
	view := h.buildPage(s)
	release()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, view); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

// Action wraps a form parser into a POST handler that applies the action
// and redirects back to the form.
func (h *Handler) Action(parse func(r *http.Request, s *models.Session) flow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		s, release := h.session(w, r)
		action := parse(r, s)
		if err := h.flow.Handle(r.Context(), s, action); err != nil {
			h.logAction(s, action, err)
		}
		release()

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// Download serves the workbook produced by the last submission
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	var export *models.Export
	if s, release, ok := h.store.Lookup(readSessionCookie(r)); ok {
		export = s.LastExport
		release()
	}

	if export == nil {
		http.Error(w, "Nothing to download", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", sheets.XLSXMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Write(export.Data)
}

// GetStats reports submission counters to the operator
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.flow.Stats()
	stats.ActiveSessions = h.store.Len()
	stats.ExpiredSessions = h.Expired()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*models.Session, func()) {
	s, release, created := h.store.Acquire(readSessionCookie(r))
	if created {
		h.flow.Start(s)
		writeSessionCookie(w, r, s.ID)
	}
	return s, release
}

func (h *Handler) logAction(s *models.Session, action flow.Action, err error) {
	fields := []zap.Field{
		zap.String("session", s.ID),
		zap.String("action", fmt.Sprintf("%T", action)),
		zap.String("step", string(s.Step)),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, flow.ErrEarlyReaction), errors.Is(err, flow.ErrNotAllowed), errors.Is(err, flow.ErrNoStimulus):
		h.logger.Debug("action ignored", fields...)
	case errors.Is(err, flow.ErrInvalidCredentials), errors.Is(err, sheets.ErrDuplicateSubmission):
		h.logger.Info("action rejected", fields...)
	default:
		h.logger.Debug("action failed", fields...)
	}
}

// Form parsers

func parseLogin(r *http.Request, _ *models.Session) flow.Action {
	return flow.Login{
		PilotID:  strings.TrimSpace(r.PostFormValue("pilot_id")),
		Password: r.PostFormValue("password"),
	}
}

// parseEntry reads the data entry form. Out-of-range scores are clamped and
// unknown choices fall back to the current draft, as the form widgets would.
func (h *Handler) parseEntry(r *http.Request, s *models.Session) flow.Action {
	d := s.Draft
	opts := h.flow.Options()

	if s.Authenticated {
		d.PilotID = s.PilotID
	} else {
		d.PilotID = strings.TrimSpace(r.PostFormValue("pilot_id"))
	}

	if ft := r.PostFormValue("flight_type"); contains(opts.FlightTypes, ft) {
		d.FlightType = ft
	}
	if phase := types.FlightPhase(r.PostFormValue("flight_phase")); phase.Valid() {
		d.FlightPhase = phase
	}
	if v := strings.TrimSpace(r.PostFormValue("date")); v != "" {
		if date, err := time.Parse(types.DateLayout, v); err == nil {
			d.Date = date
		}
	}
	if v, err := strconv.Atoi(r.PostFormValue("kss")); err == nil {
		d.KSS = types.KSS.Clamp(v)
	}
	if v, err := strconv.Atoi(r.PostFormValue("sp")); err == nil {
		d.SP = types.SP.Clamp(v)
	}
	return flow.SubmitEntry{Draft: d}
}

func fixed(a flow.Action) func(*http.Request, *models.Session) flow.Action {
	return func(*http.Request, *models.Session) flow.Action { return a }
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Expired returns how many sessions the sweeper dropped so far
func (h *Handler) Expired() int64 {
	return h.expired.Load()
}

// SweepSessions drops idle sessions and records the count
func (h *Handler) SweepSessions() int {
	n := h.store.Sweep()
	h.expired.Add(int64(n))
	return n
}
