package flow

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/fatigue-report/models"
)

func TestPVTDelayWithinBounds(t *testing.T) {
	p := NewPVT(1, rand.New(rand.NewSource(42)))
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 200; i++ {
		var st models.PVTState
		delay, err := p.Start(&st, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, delay, 2*time.Second)
		assert.LessOrEqual(t, delay, 5*time.Second)
		assert.Equal(t, now.Add(delay), *st.StimulusAt)
	}
}

func TestPVTEarlyReactionIgnored(t *testing.T) {
	p := NewPVT(1, rand.New(rand.NewSource(1)))
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	var st models.PVTState

	_, err := p.React(&st, now)
	require.ErrorIs(t, err, ErrNoStimulus)

	_, err = p.Start(&st, now)
	require.NoError(t, err)
	_, err = p.React(&st, now.Add(time.Second))
	require.ErrorIs(t, err, ErrEarlyReaction)
	assert.Empty(t, st.InProgress)
	assert.NotNil(t, st.StimulusAt, "stimulus stays armed")
}

func TestPVTMultiTrialAttempt(t *testing.T) {
	p := NewPVT(3, rand.New(rand.NewSource(1)))
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	var st models.PVTState

	for i, ms := range []int{250, 300, 650} {
		_, err := p.Start(&st, now)
		require.NoError(t, err)
		now = st.StimulusAt.Add(time.Duration(ms) * time.Millisecond)
		done, err := p.React(&st, now)
		require.NoError(t, err)
		assert.Equal(t, i == 2, done)
	}

	require.Len(t, st.Attempts, 1)
	assert.InDelta(t, 400.0, st.Attempts[0].AverageMs, 1e-9)
	assert.Equal(t, 1, st.Attempts[0].Lapses)
	assert.Empty(t, st.InProgress)
}

func TestPVTRetryKeepsCompletedAttempt(t *testing.T) {
	p := NewPVT(2, rand.New(rand.NewSource(1)))
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	st := models.PVTState{
		Attempts:   []models.PVTAttempt{{Reactions: []float64{300, 310}, AverageMs: 305}},
		InProgress: []float64{500},
	}

	require.NoError(t, p.Retry(&st))
	assert.Empty(t, st.InProgress)
	require.Len(t, st.Attempts, 1)

	_, err := p.Start(&st, now)
	require.NoError(t, err)
}

func TestPVTAttemptLimit(t *testing.T) {
	p := NewPVT(1, rand.New(rand.NewSource(1)))
	st := models.PVTState{Attempts: []models.PVTAttempt{{AverageMs: 420}, {AverageMs: 380}}}

	_, err := p.Start(&st, time.Now())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	require.ErrorIs(t, p.Retry(&st), ErrAttemptsExhausted)
}

func TestBestPVT(t *testing.T) {
	_, ok := BestPVT(models.PVTState{})
	assert.False(t, ok)

	best, ok := BestPVT(models.PVTState{Attempts: []models.PVTAttempt{
		{AverageMs: 420, Lapses: 0},
		{AverageMs: 380, Lapses: 1},
	}})
	require.True(t, ok)
	assert.Equal(t, 380.0, best.BestReactionMs)
	assert.Equal(t, 1, best.Lapses)
}
