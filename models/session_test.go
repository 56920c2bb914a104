package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/fatigue-report/types"
)

func TestNewSessionDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
	s := NewSession("abc", now)

	assert.Equal(t, types.PreFlight, s.Draft.FlightPhase)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), s.Draft.Date)
	assert.Equal(t, 5, s.Draft.KSS)
	assert.Equal(t, 3, s.Draft.SP)
}

func TestTakeMessageClears(t *testing.T) {
	s := NewSession("abc", time.Now())
	s.Notify(MessageError, "boom")

	m := s.TakeMessage()
	require.NotNil(t, m)
	assert.Equal(t, MessageError, m.Kind)
	assert.Nil(t, s.TakeMessage())
}

// A session mid-test must survive a JSON round trip so it can be stored
// outside the process.
func TestSessionSerializes(t *testing.T) {
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	armed := now.Add(3 * time.Second)

	s := NewSession("abc", now)
	s.Step = StepPVT
	s.Draft.PilotID = "P001"
	s.PVT = PVTState{
		Attempts:   []PVTAttempt{{Reactions: []float64{420}, AverageMs: 420}},
		InProgress: []float64{510.5},
		StimulusAt: &armed,
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back Session
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StepPVT, back.Step)
	assert.Equal(t, "P001", back.Draft.PilotID)
	assert.Equal(t, s.PVT.Attempts, back.PVT.Attempts)
	assert.Equal(t, s.PVT.InProgress, back.PVT.InProgress)
	require.NotNil(t, back.PVT.StimulusAt)
	assert.True(t, armed.Equal(*back.PVT.StimulusAt))
}
