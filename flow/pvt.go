package flow

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/vainnor/fatigue-report/models"
	"github.com/vainnor/fatigue-report/types"
)

// MaxPVTAttempts is how many completed attempts a pilot may record
const MaxPVTAttempts = 2

const (
	minStimulusDelay = 2 * time.Second
	maxStimulusDelay = 5 * time.Second
)

var (
	ErrNoStimulus        = errors.New("no stimulus armed")
	ErrEarlyReaction     = errors.New("reaction before stimulus")
	ErrAttemptsExhausted = errors.New("no attempts left")
	ErrNoCompletedPVT    = errors.New("no completed reaction test")
)

// PVT runs the reaction-time test against a session's PVTState
type PVT struct {
	trials int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPVT creates a test where one attempt consists of trials reactions
func NewPVT(trials int, rnd *rand.Rand) *PVT {
	if trials < 1 {
		trials = 1
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PVT{trials: trials, rnd: rnd}
}

// Start arms the next stimulus after a uniform delay in [2s, 5s]
func (p *PVT) Start(st *models.PVTState, now time.Time) (time.Duration, error) {
	if len(st.Attempts) >= MaxPVTAttempts {
		return 0, ErrAttemptsExhausted
	}

	p.mu.Lock()
	delay := minStimulusDelay + time.Duration(p.rnd.Int63n(int64(maxStimulusDelay-minStimulusDelay)+1))
	p.mu.Unlock()

	at := now.Add(delay)
	st.StimulusAt = &at
	return delay, nil
}

// React records the elapsed time since the stimulus appeared. It reports
// whether the reaction completed an attempt.
func (p *PVT) React(st *models.PVTState, now time.Time) (bool, error) {
	if st.StimulusAt == nil {
		return false, ErrNoStimulus
	}
	if now.Before(*st.StimulusAt) {
		return false, ErrEarlyReaction
	}

	elapsed := float64(now.Sub(*st.StimulusAt).Microseconds()) / 1000
	st.StimulusAt = nil
	st.InProgress = append(st.InProgress, elapsed)

	if len(st.InProgress) < p.trials {
		return false, nil
	}

	st.Attempts = append(st.Attempts, summarize(st.InProgress))
	st.InProgress = nil
	return true, nil
}

// Retry discards the reactions of the attempt in progress. Completed
// attempts are kept.
func (p *PVT) Retry(st *models.PVTState) error {
	if len(st.Attempts) >= MaxPVTAttempts {
		return ErrAttemptsExhausted
	}
	st.InProgress = nil
	st.StimulusAt = nil
	return nil
}

func (p *PVT) Trials() int { return p.trials }

// BestPVT returns the completed attempt with the lowest average
func BestPVT(st models.PVTState) (types.PVTResult, bool) {
	if len(st.Attempts) == 0 {
		return types.PVTResult{}, false
	}
	best := st.Attempts[0]
	for _, a := range st.Attempts[1:] {
		if a.AverageMs < best.AverageMs {
			best = a
		}
	}
	return types.PVTResult{BestReactionMs: best.AverageMs, Lapses: best.Lapses}, true
}

func summarize(reactions []float64) models.PVTAttempt {
	var sum float64
	lapses := 0
	for _, ms := range reactions {
		sum += ms
		if ms >= types.LapseThresholdMs {
			lapses++
		}
	}
	return models.PVTAttempt{
		Reactions: append([]float64(nil), reactions...),
		AverageMs: sum / float64(len(reactions)),
		Lapses:    lapses,
	}
}
