package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"Pilot_ID", "Flight_Type", "Flight_Phase", "Date", "KSS", "SP"},
		Columns(ColumnOptions{}))
	assert.Equal(t, []string{"Pilot_ID", "Flight_Type", "Flight_Phase", "Date", "KSS", "SP", "Time_Submitted", "Best_PVT_ms", "PVT_Lapses"},
		Columns(ColumnOptions{Timestamp: true, PVT: true}))
}

func TestRowFormatsPVT(t *testing.T) {
	rec := FatigueRecord{
		PilotID:     "P001",
		FlightType:  "Pilot",
		FlightPhase: PostFlight,
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		KSS:         7,
		SP:          5,
		PVT:         &PVTResult{BestReactionMs: 380, Lapses: 0},
	}
	row := rec.Row(Columns(ColumnOptions{PVT: true}))
	assert.Equal(t, []string{"P001", "Pilot", "Post-Flight", "2024-05-01", "7", "5", "380.0", "0"}, row)
}

func TestParseRowToleratesMissingOptionalColumns(t *testing.T) {
	header := Columns(ColumnOptions{Timestamp: true, PVT: true})
	rec, err := ParseRow(header, []string{"P002", "Instructor", "Pre-Flight", "2024-05-02", "3", "2"})
	require.NoError(t, err)
	assert.Equal(t, "P002", rec.PilotID)
	assert.Nil(t, rec.Timestamp)
	assert.Nil(t, rec.PVT)
}

func TestParseRowRejectsBadScores(t *testing.T) {
	header := Columns(ColumnOptions{})
	_, err := ParseRow(header, []string{"P002", "Instructor", "Pre-Flight", "2024-05-02", "high", "2"})
	assert.ErrorContains(t, err, "KSS")
}

func TestScaleClamp(t *testing.T) {
	assert.Equal(t, 1, KSS.Clamp(-3))
	assert.Equal(t, 9, KSS.Clamp(12))
	assert.Equal(t, 7, SP.Clamp(8))
	assert.True(t, SP.Contains(4))
	assert.False(t, KSS.Contains(0))
}

func TestDuplicateKey(t *testing.T) {
	a := FatigueRecord{PilotID: "P001", FlightPhase: PreFlight, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), KSS: 5}
	b := a
	b.KSS = 8
	b.FlightType = "Instructor"
	assert.Equal(t, a.DuplicateKey(), b.DuplicateKey())

	b.FlightPhase = PostFlight
	assert.NotEqual(t, a.DuplicateKey(), b.DuplicateKey())
}
