// Package sheets persists finalized fatigue records: as a downloadable
// workbook, as a file on disk, or as a row appended to a remote spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/types"
)

const (
	DownloadFilename = "kss_sp_submission.xlsx"
	localStampLayout = "20060102_150405"
)

// Receipt describes where a record went. Data is set when the sink produced
// a workbook the pilot can download.
type Receipt struct {
	Location string
	Filename string
	Data     []byte
}

// Sink stores one finalized record. Errors are always *Error.
type Sink interface {
	Save(ctx context.Context, rec types.FatigueRecord) (Receipt, error)
}

// Reader is implemented by sinks that can list what a pilot already stored
type Reader interface {
	History(ctx context.Context, pilotID string) ([]types.FatigueRecord, error)
}

// DownloadSink builds the workbook in memory and hands it back for download
type DownloadSink struct {
	Columns []string
}

func (s *DownloadSink) Save(_ context.Context, rec types.FatigueRecord) (Receipt, error) {
	data, err := Encode([]types.FatigueRecord{rec}, s.Columns)
	if err != nil {
		return Receipt{}, &Error{Kind: KindTransient, Op: "encode workbook", Err: err}
	}
	return Receipt{Location: "download", Filename: DownloadFilename, Data: data}, nil
}

// LocalFileSink writes the workbook under Dir and also offers it for download.
// Saved files are never overwritten.
type LocalFileSink struct {
	Dir     string
	Columns []string
	Now     func() time.Time
	Logger  *zap.Logger
}

// maxNameCollisions bounds the -N suffixes tried for one filename
const maxNameCollisions = 100

func (s *LocalFileSink) Save(_ context.Context, rec types.FatigueRecord) (Receipt, error) {
	data, err := Encode([]types.FatigueRecord{rec}, s.Columns)
	if err != nil {
		return Receipt{}, &Error{Kind: KindTransient, Op: "encode workbook", Err: err}
	}

	stamp := s.now()
	if rec.Timestamp != nil {
		stamp = *rec.Timestamp
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Receipt{}, &Error{Kind: KindTransient, Op: "create save dir", Err: err}
	}

	base := LocalFilename(rec.PilotID, rec.FlightPhase, stamp)
	for n := 1; n <= maxNameCollisions; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s-%d.xlsx", strings.TrimSuffix(base, ".xlsx"), n)
		}
		path := filepath.Join(s.Dir, name)

		err := writeNew(path, data)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return Receipt{}, &Error{Kind: KindTransient, Op: "write file", Err: err}
		}
		return Receipt{Location: path, Filename: name, Data: data}, nil
	}
	return Receipt{}, &Error{Kind: KindTransient, Op: "write file", Err: fmt.Errorf("%s: too many files with this name", base)}
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

type savedRecord struct {
	rec     types.FatigueRecord
	savedAt time.Time
	seq     int
}

// History decodes every saved workbook of the pilot, oldest first. Rows that
// cannot be read are skipped.
func (s *LocalFileSink) History(_ context.Context, pilotID string) ([]types.FatigueRecord, error) {
	pattern := filepath.Join(s.Dir, safeFilePart(pilotID)+"_*.xlsx")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Op: "list saved files", Err: err}
	}

	var saved []savedRecord
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, &Error{Kind: KindTransient, Op: "open saved file", Err: err}
		}
		header, rows, err := readSheet(f)
		f.Close()
		if err != nil {
			s.logger().Warn("skipping unreadable file", zap.String("file", path), zap.Error(err))
			continue
		}

		at, seq := savedAt(filepath.Base(path))
		for _, row := range rows {
			rec, err := types.ParseRow(header, row)
			if err != nil {
				s.logger().Warn("skipping unreadable row", zap.String("file", path), zap.Error(err))
				continue
			}
			if rec.PilotID != pilotID {
				continue
			}
			entry := savedRecord{rec: rec, savedAt: at, seq: seq}
			if rec.Timestamp != nil {
				entry.savedAt = *rec.Timestamp
			}
			if entry.savedAt.IsZero() {
				entry.savedAt = rec.Date
			}
			saved = append(saved, entry)
		}
	}

	sort.SliceStable(saved, func(i, j int) bool {
		a, b := saved[i], saved[j]
		if !a.savedAt.Equal(b.savedAt) {
			return a.savedAt.Before(b.savedAt)
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.rec.Date.Before(b.rec.Date)
	})

	records := make([]types.FatigueRecord, len(saved))
	for i, e := range saved {
		records[i] = e.rec
	}
	return records, nil
}

func (s *LocalFileSink) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LocalFileSink) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

var savedStamp = regexp.MustCompile(`_(\d{8}_\d{6})(?:-(\d+))?\.xlsx$`)

// savedAt reads the save instant and collision number back from a filename
// produced by Save. Unknown names give the zero time.
func savedAt(name string) (time.Time, int) {
	m := savedStamp.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, 0
	}
	at, err := time.Parse(localStampLayout, m[1])
	if err != nil {
		return time.Time{}, 0
	}
	seq := 1
	if m[2] != "" {
		seq, _ = strconv.Atoi(m[2])
	}
	return at, seq
}

// LocalFilename is {pilot_id}_{flight_phase}_{timestamp}.xlsx
func LocalFilename(pilotID string, phase types.FlightPhase, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.xlsx", safeFilePart(pilotID), safeFilePart(string(phase)), at.Format(localStampLayout))
}

func safeFilePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '[', ']':
			return '-'
		}
		return r
	}, s)
}

func sortRecords(records []types.FatigueRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}
