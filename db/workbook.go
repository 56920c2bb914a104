package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vainnor/fatigue-report/sheets"
)

// Workbook stores spreadsheets as Postgres rows. It satisfies sheets.Client.
type Workbook struct {
	db *sql.DB
}

func NewWorkbook(conn *sql.DB) *Workbook {
	return &Workbook{db: conn}
}

func (w *Workbook) Open(ctx context.Context, document string) (sheets.Spreadsheet, error) {
	var id int
	err := w.db.QueryRowContext(ctx, `
		SELECT id FROM spreadsheets WHERE name = $1
	`, document).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spreadsheet %q: %w", document, sheets.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &spreadsheet{db: w.db, id: id}, nil
}

// Provision creates the document and, when title is set, a worksheet with
// the header row. Existing ones are left untouched.
func (w *Workbook) Provision(ctx context.Context, document, title string, header []string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bookID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO spreadsheets (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, document).Scan(&bookID)
	if err != nil {
		return fmt.Errorf("error creating spreadsheet: %w", err)
	}

	if title != "" {
		var sheetID int
		err = tx.QueryRowContext(ctx, `
			INSERT INTO worksheets (spreadsheet_id, title)
			VALUES ($1, $2)
			ON CONFLICT (spreadsheet_id, title) DO NOTHING
			RETURNING id
		`, bookID, title).Scan(&sheetID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// already provisioned
		case err != nil:
			return fmt.Errorf("error creating worksheet: %w", err)
		default:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO worksheet_rows (worksheet_id, cells) VALUES ($1, $2)
			`, sheetID, pq.Array(header)); err != nil {
				return fmt.Errorf("error writing header: %w", err)
			}
		}
	}

	return tx.Commit()
}

type spreadsheet struct {
	db *sql.DB
	id int
}

func (s *spreadsheet) Worksheet(ctx context.Context, title string) (sheets.Worksheet, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM worksheets WHERE spreadsheet_id = $1 AND title = $2
	`, s.id, title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("worksheet %q: %w", title, sheets.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &worksheet{db: s.db, id: id, title: title}, nil
}

func (s *spreadsheet) AddWorksheet(ctx context.Context, title string) (sheets.Worksheet, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO worksheets (spreadsheet_id, title)
		VALUES ($1, $2)
		RETURNING id
	`, s.id, title).Scan(&id)
	if err != nil {
		return nil, err
	}
	return &worksheet{db: s.db, id: id, title: title}, nil
}

type worksheet struct {
	db    *sql.DB
	id    int
	title string
}

func (w *worksheet) Title() string { return w.title }

func (w *worksheet) Rows(ctx context.Context) ([][]string, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT cells FROM worksheet_rows
		WHERE worksheet_id = $1
		ORDER BY id
	`, w.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cells []string
		if err := rows.Scan(pq.Array(&cells)); err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *worksheet) AppendRow(ctx context.Context, row []string) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO worksheet_rows (worksheet_id, cells) VALUES ($1, $2)
	`, w.id, pq.Array(row))
	return err
}
