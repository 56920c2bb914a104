package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// Config holds the Postgres connection settings
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func InitDB(cfg Config) error {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		sslMode,
	)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}

	if err = createTables(DB); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	return nil
}

func createTables(conn *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS spreadsheets (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS worksheets (
			id SERIAL PRIMARY KEY,
			spreadsheet_id INTEGER NOT NULL REFERENCES spreadsheets(id),
			title VARCHAR(100) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			UNIQUE (spreadsheet_id, title)
		)`,
		// Rows carry no uniqueness on pilot/phase/date; duplicates are
		// detected by reading before appending.
		`CREATE TABLE IF NOT EXISTS worksheet_rows (
			id BIGSERIAL PRIMARY KEY,
			worksheet_id INTEGER NOT NULL REFERENCES worksheets(id),
			cells TEXT[] NOT NULL,
			appended_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_worksheet_rows_worksheet ON worksheet_rows(worksheet_id, id)`,
	}

	for _, query := range queries {
		_, err := conn.Exec(query)
		if err != nil {
			return err
		}
	}

	return nil
}

func CloseDB() {
	if DB != nil {
		DB.Close()
	}
}
