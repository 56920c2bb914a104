// Package flow drives a pilot through the fatigue report: optional login,
// data entry, optional review, optional reaction-time test, submission and
// optional history view.
package flow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/auth"
	"github.com/vainnor/fatigue-report/models"
	"github.com/vainnor/fatigue-report/sheets"
	"github.com/vainnor/fatigue-report/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAllowed         = errors.New("action not allowed in current step")
	ErrHistoryUnavailable = errors.New("history not available")
)

type Options struct {
	RequireLogin    bool
	EnableReview    bool
	EnablePVT       bool
	EnableHistory   bool
	RecordTimestamp bool
	FlightTypes     []string
	PVTTrials       int
}

// Columns is the sheet layout implied by the options
func (o Options) Columns() []string {
	return types.Columns(types.ColumnOptions{Timestamp: o.RecordTimestamp, PVT: o.EnablePVT})
}

type Controller struct {
	opts     Options
	verifier auth.Verifier
	sink     sheets.Sink
	pvt      *PVT
	now      func() time.Time
	logger   *zap.Logger

	mu    sync.Mutex
	stats types.SubmissionStats
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithRand(rnd *rand.Rand) Option {
	return func(c *Controller) { c.pvt = NewPVT(c.opts.PVTTrials, rnd) }
}

func New(opts Options, verifier auth.Verifier, sink sheets.Sink, logger *zap.Logger, options ...Option) (*Controller, error) {
	if sink == nil {
		return nil, errors.New("flow: persistence sink is required")
	}
	if opts.RequireLogin && verifier == nil {
		return nil, errors.New("flow: login required but no verifier configured")
	}
	if len(opts.FlightTypes) == 0 {
		opts.FlightTypes = types.CrewFlightTypes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		opts:     opts,
		verifier: verifier,
		sink:     sink,
		now:      time.Now,
		logger:   logger,
	}
	c.pvt = NewPVT(opts.PVTTrials, nil)
	for _, o := range options {
		o(c)
	}
	c.stats.StartTime = c.now()
	return c, nil
}

func (c *Controller) Options() Options { return c.opts }

func (c *Controller) PVTTrials() int { return c.pvt.Trials() }

// CanViewHistory reports whether the configured sink can list past reports
func (c *Controller) CanViewHistory() bool {
	if !c.opts.EnableHistory {
		return false
	}
	_, ok := c.sink.(sheets.Reader)
	return ok
}

// Stats returns a snapshot of the submission counters
func (c *Controller) Stats() types.SubmissionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Start puts a new session on its first step
func (c *Controller) Start(s *models.Session) {
	now := c.now()
	s.Draft = models.DefaultDraft(now)
	s.Draft.FlightType = c.opts.FlightTypes[0]
	s.PVT = models.PVTState{}
	s.Confirmed = false
	s.Submitted = nil
	s.LastExport = nil
	s.History = nil
	s.Step = models.StepEntry
	if c.opts.RequireLogin && !s.Authenticated {
		s.Step = models.StepLogin
	}
	if s.Authenticated {
		s.Draft.PilotID = s.PilotID
	}
}

// Handle applies one user action to the session. Failures the pilot should
// see are left on the session as a message; the returned error is for logging.
func (c *Controller) Handle(ctx context.Context, s *models.Session, action Action) error {
	if s.Step == "" {
		c.Start(s)
	}

	if c.opts.RequireLogin && !s.Authenticated {
		if _, ok := action.(Login); !ok {
			s.Step = models.StepLogin
			return ErrNotAllowed
		}
	}

	if !c.allowed(s.Step, action) {
		s.Notify(models.MessageInfo, "That action is not available right now.")
		return fmt.Errorf("%w: %s in %s", ErrNotAllowed, action.name(), s.Step)
	}

	switch a := action.(type) {
	case Login:
		return c.login(ctx, s, a)
	case SubmitEntry:
		s.Draft = a.Draft
		if s.Draft.PilotID == "" && s.Authenticated {
			s.Draft.PilotID = s.PilotID
		}
		s.Confirmed = false
		return c.advance(ctx, s, models.StepEntry)
	case Edit:
		s.Confirmed = false
		s.Step = models.StepEntry
		return nil
	case Confirm:
		s.Confirmed = true
		return c.advance(ctx, s, models.StepReview)
	case PVTStart:
		if _, err := c.pvt.Start(&s.PVT, c.now()); err != nil {
			s.Notify(models.MessageError, "Both reaction test attempts are used.")
			return err
		}
		return nil
	case PVTReact:
		done, err := c.pvt.React(&s.PVT, c.now())
		if err != nil {
			return err
		}
		if done {
			last := s.PVT.Attempts[len(s.PVT.Attempts)-1]
			s.Notify(models.MessageSuccess, fmt.Sprintf("Attempt %d: %.0f ms", len(s.PVT.Attempts), last.AverageMs))
		}
		return nil
	case PVTRetry:
		if err := c.pvt.Retry(&s.PVT); err != nil {
			s.Notify(models.MessageError, "Both reaction test attempts are used.")
			return err
		}
		return nil
	case PVTAccept:
		if _, ok := BestPVT(s.PVT); !ok {
			s.Notify(models.MessageError, "Complete the reaction test before submitting.")
			return ErrNoCompletedPVT
		}
		return c.submit(ctx, s, models.StepPVT)
	case ViewHistory:
		return c.history(ctx, s)
	case NewReport:
		c.Start(s)
		return nil
	case Logout:
		s.Authenticated = false
		s.PilotID = ""
		c.Start(s)
		return nil
	}
	return fmt.Errorf("%w: %T", ErrNotAllowed, action)
}

func (c *Controller) allowed(step models.Step, action Action) bool {
	switch action.(type) {
	case Login:
		return step == models.StepLogin
	case SubmitEntry:
		return step == models.StepEntry
	case Edit, Confirm:
		return step == models.StepReview
	case PVTStart, PVTReact, PVTRetry, PVTAccept:
		return step == models.StepPVT
	case ViewHistory:
		return c.opts.EnableHistory && (step == models.StepEntry || step == models.StepDone)
	case NewReport:
		return step == models.StepDone || step == models.StepHistory
	case Logout:
		return c.opts.RequireLogin
	}
	return false
}

func (c *Controller) login(ctx context.Context, s *models.Session, a Login) error {
	if !c.verifier.Verify(ctx, a.PilotID, a.Password) {
		c.mu.Lock()
		c.stats.FailedLogins++
		c.mu.Unlock()
		s.Notify(models.MessageError, "Incorrect password. Please try again.")
		c.logger.Info("login failed", zap.String("pilot_id", a.PilotID))
		return ErrInvalidCredentials
	}
	s.Authenticated = true
	s.PilotID = a.PilotID
	c.Start(s)
	c.logger.Info("pilot logged in", zap.String("pilot_id", a.PilotID))
	return nil
}

// advance moves past a completed step: review, then the reaction test, then
// submission, skipping the ones that are disabled.
func (c *Controller) advance(ctx context.Context, s *models.Session, from models.Step) error {
	if from == models.StepEntry && c.opts.EnableReview {
		s.Step = models.StepReview
		return nil
	}
	if c.opts.EnablePVT {
		s.Step = models.StepPVT
		return nil
	}
	return c.submit(ctx, s, from)
}

// Record assembles the record the session would submit now
func (c *Controller) Record(s *models.Session) types.FatigueRecord {
	d := s.Draft
	rec := types.FatigueRecord{
		PilotID:     d.PilotID,
		FlightType:  d.FlightType,
		FlightPhase: d.FlightPhase,
		Date:        d.Date,
		KSS:         d.KSS,
		SP:          d.SP,
	}
	if c.opts.RecordTimestamp {
		ts := c.now()
		rec.Timestamp = &ts
	}
	if c.opts.EnablePVT {
		if best, ok := BestPVT(s.PVT); ok {
			rec.PVT = &best
		}
	}
	return rec
}

func (c *Controller) submit(ctx context.Context, s *models.Session, from models.Step) error {
	s.Step = models.StepSubmitting
	rec := c.Record(s)

	receipt, err := c.sink.Save(ctx, rec)
	if err != nil {
		s.Step = from
		s.Notify(models.MessageError, failureMessage(err))
		c.mu.Lock()
		if sheets.KindOf(err) == sheets.KindDuplicate {
			c.stats.Duplicates++
		} else {
			c.stats.Failures++
		}
		c.mu.Unlock()
		c.logger.Warn("submission failed",
			zap.String("pilot_id", rec.PilotID),
			zap.Stringer("kind", sheets.KindOf(err)),
			zap.Error(err))
		return err
	}

	s.Step = models.StepDone
	s.Submitted = &rec
	s.LastExport = nil
	if len(receipt.Data) > 0 {
		s.LastExport = &models.Export{Filename: receipt.Filename, Data: receipt.Data}
	}
	s.Notify(models.MessageSuccess, "Your data has been recorded. Please inform the operator.")

	c.mu.Lock()
	c.stats.Submissions++
	c.stats.LastSubmission = c.now()
	c.mu.Unlock()

	c.logger.Info("report submitted",
		zap.String("pilot_id", rec.PilotID),
		zap.String("flight_phase", string(rec.FlightPhase)),
		zap.String("location", receipt.Location))
	return nil
}

func (c *Controller) history(ctx context.Context, s *models.Session) error {
	reader, ok := c.sink.(sheets.Reader)
	if !ok {
		s.Notify(models.MessageInfo, "History is not available for this form.")
		return ErrHistoryUnavailable
	}

	pilotID := s.PilotID
	if pilotID == "" {
		pilotID = s.Draft.PilotID
	}
	if pilotID == "" {
		s.Notify(models.MessageError, "Enter your pilot ID to view your history.")
		return ErrHistoryUnavailable
	}

	records, err := reader.History(ctx, pilotID)
	if err != nil {
		s.Notify(models.MessageError, failureMessage(err))
		return err
	}
	s.History = records
	s.Step = models.StepHistory
	return nil
}

func failureMessage(err error) string {
	switch sheets.KindOf(err) {
	case sheets.KindNotFound:
		return "The spreadsheet or worksheet could not be found. Please inform the operator."
	case sheets.KindDuplicate:
		return "A report for this pilot, assessment time and date has already been submitted."
	default:
		return fmt.Sprintf("Saving failed: %v. Please try again.", err)
	}
}
