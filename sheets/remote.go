package sheets

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/types"
)

// Client opens spreadsheet documents by name
type Client interface {
	Open(ctx context.Context, document string) (Spreadsheet, error)
}

// Spreadsheet is a named document holding worksheets. Lookups of missing
// worksheets return an error matching ErrNotFound.
type Spreadsheet interface {
	Worksheet(ctx context.Context, title string) (Worksheet, error)
	AddWorksheet(ctx context.Context, title string) (Worksheet, error)
}

// Worksheet is an append-only grid of string cells
type Worksheet interface {
	Title() string
	Rows(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, row []string) error
}

type RemoteOptions struct {
	Document string
	// Worksheet is the fixed tab name, ignored when PerPilot is set
	Worksheet       string
	PerPilot        bool
	CheckDuplicates bool
	Columns         []string
}

// RemoteSink appends records to a worksheet of a remote spreadsheet.
//
// The duplicate check reads all rows and then appends without any lock, so two
// concurrent submissions with the same pilot, phase and date can both pass it.
type RemoteSink struct {
	client Client
	opts   RemoteOptions
	logger *zap.Logger
}

func NewRemoteSink(client Client, opts RemoteOptions, logger *zap.Logger) *RemoteSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteSink{client: client, opts: opts, logger: logger}
}

func (s *RemoteSink) Save(ctx context.Context, rec types.FatigueRecord) (Receipt, error) {
	book, err := s.client.Open(ctx, s.opts.Document)
	if err != nil {
		return Receipt{}, classify("open spreadsheet "+s.opts.Document, err)
	}

	ws, err := s.worksheet(ctx, book, rec.PilotID, true)
	if err != nil {
		return Receipt{}, err
	}

	if s.opts.CheckDuplicates {
		rows, err := ws.Rows(ctx)
		if err != nil {
			return Receipt{}, classify("read worksheet "+ws.Title(), err)
		}
		if containsDuplicate(rows, s.opts.Columns, rec) {
			s.logger.Info("duplicate submission rejected",
				zap.String("pilot_id", rec.PilotID),
				zap.String("flight_phase", string(rec.FlightPhase)),
				zap.String("date", rec.Date.Format(types.DateLayout)))
			return Receipt{}, &Error{Kind: KindDuplicate, Op: "append to " + ws.Title(), Err: ErrDuplicateSubmission}
		}
	}

	if err := ws.AppendRow(ctx, rec.Row(s.opts.Columns)); err != nil {
		return Receipt{}, classify("append to "+ws.Title(), err)
	}

	s.logger.Debug("row appended",
		zap.String("document", s.opts.Document),
		zap.String("worksheet", ws.Title()),
		zap.String("pilot_id", rec.PilotID))

	return Receipt{Location: s.opts.Document + "/" + ws.Title()}, nil
}

// History returns the rows the pilot already stored on the worksheet
func (s *RemoteSink) History(ctx context.Context, pilotID string) ([]types.FatigueRecord, error) {
	book, err := s.client.Open(ctx, s.opts.Document)
	if err != nil {
		return nil, classify("open spreadsheet "+s.opts.Document, err)
	}
	ws, err := s.worksheet(ctx, book, pilotID, false)
	if s.opts.PerPilot && errors.Is(err, ErrNotFound) {
		// no tab yet means nothing submitted yet
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := ws.Rows(ctx)
	if err != nil {
		return nil, classify("read worksheet "+ws.Title(), err)
	}

	header, data := splitHeader(rows, s.opts.Columns)
	var records []types.FatigueRecord
	for _, row := range data {
		rec, err := types.ParseRow(header, row)
		if err != nil {
			s.logger.Warn("skipping unreadable row", zap.String("worksheet", ws.Title()), zap.Error(err))
			continue
		}
		if rec.PilotID == pilotID {
			records = append(records, rec)
		}
	}
	sortRecords(records)
	return records, nil
}

// worksheet resolves the target tab. In per-pilot mode a missing tab is
// created with the header row when create is set.
func (s *RemoteSink) worksheet(ctx context.Context, book Spreadsheet, pilotID string, create bool) (Worksheet, error) {
	title := s.opts.Worksheet
	if s.opts.PerPilot {
		title = WorksheetTitle(pilotID)
	}

	ws, err := book.Worksheet(ctx, title)
	if err == nil {
		return ws, nil
	}
	if !s.opts.PerPilot || !create || !errors.Is(err, ErrNotFound) {
		return nil, classify("open worksheet "+title, err)
	}

	ws, err = book.AddWorksheet(ctx, title)
	if err != nil {
		return nil, classify("create worksheet "+title, err)
	}
	if err := ws.AppendRow(ctx, s.opts.Columns); err != nil {
		return nil, classify("write header to "+title, err)
	}
	s.logger.Info("worksheet created", zap.String("document", s.opts.Document), zap.String("worksheet", title))
	return ws, nil
}

// WorksheetTitle derives a tab name from the pilot identifier
func WorksheetTitle(pilotID string) string {
	title := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(pilotID))
	if title == "" {
		title = "Unknown"
	}
	if r := []rune(title); len(r) > 100 {
		title = string(r[:100])
	}
	return title
}

func containsDuplicate(rows [][]string, cols []string, rec types.FatigueRecord) bool {
	header, data := splitHeader(rows, cols)
	idx := map[string]int{}
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	pilot, okPilot := idx[types.ColPilotID]
	phase, okPhase := idx[types.ColFlightPhase]
	date, okDate := idx[types.ColDate]
	if !okPilot || !okPhase || !okDate {
		return false
	}

	key := rec.DuplicateKey()
	for _, row := range data {
		if cell(row, pilot) == key[0] && cell(row, phase) == key[1] && cell(row, date) == key[2] {
			return true
		}
	}
	return false
}

// splitHeader separates the header row from data rows. Worksheets without a
// recognisable header are read using the configured column order.
func splitHeader(rows [][]string, cols []string) ([]string, [][]string) {
	if len(rows) > 0 && len(rows[0]) > 0 && strings.TrimSpace(rows[0][0]) == types.ColPilotID {
		return rows[0], rows[1:]
	}
	return cols, rows
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
