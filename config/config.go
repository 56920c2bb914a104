// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/db"
	"github.com/vainnor/fatigue-report/flow"
	"github.com/vainnor/fatigue-report/types"
)

type Target string

const (
	TargetDownload Target = "download"
	TargetLocal    Target = "local"
	TargetRemote   Target = "remote"
)

type Backend string

const (
	BackendGoogle   Backend = "google"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	RequireLogin       bool   `env:"REQUIRE_LOGIN" envDefault:"false"`
	SharedPasswordHash string `env:"SHARED_PASSWORD_HASH"`
	EnableReview       bool   `env:"ENABLE_REVIEW" envDefault:"true"`
	EnablePVT          bool   `env:"ENABLE_PVT" envDefault:"false"`
	EnableHistory      bool   `env:"ENABLE_HISTORY" envDefault:"false"`
	RecordTimestamp    bool   `env:"RECORD_TIMESTAMP" envDefault:"false"`
	PVTTrials          int    `env:"PVT_TRIALS" envDefault:"1"`
	// FlightTypes is either "crew", "training" or an explicit comma list
	FlightTypes string `env:"FLIGHT_TYPES" envDefault:"crew"`

	Target  Target `env:"PERSISTENCE_TARGET" envDefault:"download"`
	SaveDir string `env:"SAVE_DIR" envDefault:"submissions"`

	SheetBackend          Backend `env:"SHEET_BACKEND" envDefault:"google"`
	SheetDocument         string  `env:"SHEET_DOCUMENT" envDefault:"Pilot Fatigue Data"`
	SheetWorksheet        string  `env:"SHEET_WORKSHEET" envDefault:"Responses"`
	SheetPerPilot         bool    `env:"SHEET_PER_PILOT" envDefault:"false"`
	DuplicateCheck        bool    `env:"DUPLICATE_CHECK" envDefault:"true"`
	GoogleCredentialsFile string  `env:"GOOGLE_CREDENTIALS_FILE" envDefault:"credentials.json"`
	GoogleCredentialsJSON string  `env:"GOOGLE_CREDENTIALS_JSON"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	OperatorKey   string        `env:"OPERATOR_KEY"`
}

// Load reads .env when present and parses the environment
func Load(logger *zap.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("error loading .env file", zap.Error(err))
	}
	return Parse()
}

// Parse reads the environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Target {
	case TargetDownload, TargetLocal, TargetRemote:
	default:
		return fmt.Errorf("unknown PERSISTENCE_TARGET %q", c.Target)
	}
	if c.Target == TargetRemote {
		switch c.SheetBackend {
		case BackendGoogle, BackendPostgres, BackendMemory:
		default:
			return fmt.Errorf("unknown SHEET_BACKEND %q", c.SheetBackend)
		}
		if c.SheetDocument == "" {
			return fmt.Errorf("SHEET_DOCUMENT is required for remote persistence")
		}
		if !c.SheetPerPilot && c.SheetWorksheet == "" {
			return fmt.Errorf("SHEET_WORKSHEET is required unless SHEET_PER_PILOT is set")
		}
	}
	if c.RequireLogin && c.SharedPasswordHash == "" {
		return fmt.Errorf("SHARED_PASSWORD_HASH is required when REQUIRE_LOGIN is set")
	}
	if c.PVTTrials < 1 {
		return fmt.Errorf("PVT_TRIALS must be at least 1")
	}
	return nil
}

// FlowOptions maps the settings onto the flow controller options
func (c Config) FlowOptions() flow.Options {
	return flow.Options{
		RequireLogin:    c.RequireLogin,
		EnableReview:    c.EnableReview,
		EnablePVT:       c.EnablePVT,
		EnableHistory:   c.EnableHistory,
		RecordTimestamp: c.RecordTimestamp,
		FlightTypes:     c.flightTypes(),
		PVTTrials:       c.PVTTrials,
	}
}

func (c Config) DB() db.Config {
	return db.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

func (c Config) flightTypes() []string {
	switch strings.ToLower(strings.TrimSpace(c.FlightTypes)) {
	case "", "crew":
		return types.CrewFlightTypes
	case "training":
		return types.TrainingFlightTypes
	}
	var out []string
	for _, t := range strings.Split(c.FlightTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
