package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const spreadsheetMime = "application/vnd.google-apps.spreadsheet"

// GoogleCredentials locates the service-account key. JSON, when set, is the
// key itself as held in a secrets store and takes precedence over File.
type GoogleCredentials struct {
	File string
	JSON string
}

// GoogleClient opens Google Sheets documents by name through the Drive API
type GoogleClient struct {
	sheets *gsheets.Service
	drive  *drive.Service
}

func NewGoogleClient(ctx context.Context, creds GoogleCredentials) (*GoogleClient, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope, drive.DriveScope)}
	switch {
	case creds.JSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(creds.JSON)))
	case creds.File != "":
		opts = append(opts, option.WithCredentialsFile(creds.File))
	default:
		return nil, errors.New("no google service account credentials configured")
	}

	sheetsSvc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleClient{sheets: sheetsSvc, drive: driveSvc}, nil
}

func (c *GoogleClient) Open(ctx context.Context, document string) (Spreadsheet, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(document, "'", `\'`), spreadsheetMime)
	list, err := c.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}
	if len(list.Files) == 0 {
		return nil, fmt.Errorf("spreadsheet %q: %w", document, ErrNotFound)
	}
	return &googleSpreadsheet{svc: c.sheets, id: list.Files[0].Id}, nil
}

type googleSpreadsheet struct {
	svc *gsheets.Service
	id  string
}

func (s *googleSpreadsheet) Worksheet(ctx context.Context, title string) (Worksheet, error) {
	sp, err := s.svc.Spreadsheets.Get(s.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}
	for _, sh := range sp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return &googleWorksheet{svc: s.svc, id: s.id, title: title}, nil
		}
	}
	return nil, fmt.Errorf("worksheet %q: %w", title, ErrNotFound)
}

func (s *googleSpreadsheet) AddWorksheet(ctx context.Context, title string) (Worksheet, error) {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.id, req).Context(ctx).Do(); err != nil {
		return nil, googleError(err)
	}
	return &googleWorksheet{svc: s.svc, id: s.id, title: title}, nil
}

type googleWorksheet struct {
	svc   *gsheets.Service
	id    string
	title string
}

func (w *googleWorksheet) Title() string { return w.title }

func (w *googleWorksheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.id, quoteTitle(w.title)).Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}
	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	return rows, nil
}

func (w *googleWorksheet) AppendRow(ctx context.Context, row []string) error {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{values}}
	_, err := w.svc.Spreadsheets.Values.Append(w.id, quoteTitle(w.title), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return googleError(err)
	}
	return nil
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// googleError maps API 404s onto ErrNotFound
func googleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", gerr.Message, ErrNotFound)
	}
	return err
}
