package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/fatigue-report/types"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, TargetDownload, cfg.Target)
	assert.True(t, cfg.EnableReview)
	assert.False(t, cfg.EnablePVT)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, types.CrewFlightTypes, cfg.FlowOptions().FlightTypes)
}

func TestParseRemotePerPilot(t *testing.T) {
	t.Setenv("PERSISTENCE_TARGET", "remote")
	t.Setenv("SHEET_BACKEND", "memory")
	t.Setenv("SHEET_PER_PILOT", "true")
	t.Setenv("SHEET_WORKSHEET", "")
	t.Setenv("ENABLE_PVT", "true")
	t.Setenv("PVT_TRIALS", "3")
	t.Setenv("FLIGHT_TYPES", "training")

	cfg, err := Parse()
	require.NoError(t, err)
	opts := cfg.FlowOptions()
	assert.True(t, opts.EnablePVT)
	assert.Equal(t, 3, opts.PVTTrials)
	assert.Equal(t, types.TrainingFlightTypes, opts.FlightTypes)
}

func TestParseExplicitFlightTypes(t *testing.T) {
	t.Setenv("FLIGHT_TYPES", "Captain, Co-Pilot ,")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"Captain", "Co-Pilot"}, cfg.FlowOptions().FlightTypes)
}

func TestParseRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown target", map[string]string{"PERSISTENCE_TARGET": "ftp"}},
		{"unknown backend", map[string]string{"PERSISTENCE_TARGET": "remote", "SHEET_BACKEND": "excel"}},
		{"login without hash", map[string]string{"REQUIRE_LOGIN": "true"}},
		{"zero trials", map[string]string{"PVT_TRIALS": "0"}},
		{"bad bool", map[string]string{"ENABLE_PVT": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
		})
	}
}
