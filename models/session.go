package models

import (
	"time"

	"github.com/vainnor/fatigue-report/types"
)

// Step is a position in the report flow
type Step string

const (
	StepLogin      Step = "login"
	StepEntry      Step = "entry"
	StepReview     Step = "review"
	StepPVT        Step = "pvt"
	StepSubmitting Step = "submitting"
	StepDone       Step = "done"
	StepHistory    Step = "history"
)

type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageInfo    MessageKind = "info"
	MessageError   MessageKind = "error"
)

// Message is a one-time notice shown on the next render
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

// Draft holds the form values while the pilot is filling them in
type Draft struct {
	PilotID     string            `json:"pilot_id"`
	FlightType  string            `json:"flight_type"`
	FlightPhase types.FlightPhase `json:"flight_phase"`
	Date        time.Time         `json:"date"`
	KSS         int               `json:"kss_score"`
	SP          int               `json:"sp_score"`
}

// PVTAttempt is one completed reaction-time attempt
type PVTAttempt struct {
	Reactions []float64 `json:"reactions_ms"`
	AverageMs float64   `json:"average_ms"`
	Lapses    int       `json:"lapses"`
}

// PVTState tracks the reaction-time test across renders
type PVTState struct {
	Attempts   []PVTAttempt `json:"attempts"`
	InProgress []float64    `json:"in_progress_ms"`
	StimulusAt *time.Time   `json:"stimulus_at,omitempty"`
}

// Export is the last spreadsheet produced for download
type Export struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// Session is the per-browser state of one pilot filling in the form
type Session struct {
	ID            string                `json:"id"`
	Step          Step                  `json:"step"`
	Authenticated bool                  `json:"authenticated"`
	Confirmed     bool                  `json:"confirmed"`
	PilotID       string                `json:"pilot_id,omitempty"`
	Draft         Draft                 `json:"draft"`
	PVT           PVTState              `json:"pvt"`
	Message       *Message              `json:"message,omitempty"`
	LastExport    *Export               `json:"last_export,omitempty"`
	Submitted     *types.FatigueRecord  `json:"submitted,omitempty"`
	History       []types.FatigueRecord `json:"history,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	LastSeen      time.Time             `json:"last_seen"`
}

// NewSession creates a session with the draft set to its defaults
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		LastSeen:  now,
		Draft:     DefaultDraft(now),
	}
}

// DefaultDraft is the blank form: today's date and the scale defaults
func DefaultDraft(now time.Time) Draft {
	return Draft{
		FlightPhase: types.PreFlight,
		Date:        truncateDay(now),
		KSS:         types.KSS.Default,
		SP:          types.SP.Default,
	}
}

// TakeMessage returns the pending notice and clears it
func (s *Session) TakeMessage() *Message {
	m := s.Message
	s.Message = nil
	return m
}

func (s *Session) Notify(kind MessageKind, text string) {
	s.Message = &Message{Kind: kind, Text: text}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
