package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Column names of the exported sheet, in their fixed order
const (
	ColPilotID       = "Pilot_ID"
	ColFlightType    = "Flight_Type"
	ColFlightPhase   = "Flight_Phase"
	ColDate          = "Date"
	ColKSS           = "KSS"
	ColSP            = "SP"
	ColTimeSubmitted = "Time_Submitted"
	ColBestPVT       = "Best_PVT_ms"
	ColPVTLapses     = "PVT_Lapses"
)

// PVTResult is the kept outcome of the reaction-time test
type PVTResult struct {
	BestReactionMs float64 `json:"best_reaction_ms"`
	Lapses         int     `json:"lapses"`
}

// FatigueRecord is one pilot self-report
type FatigueRecord struct {
	PilotID     string      `json:"pilot_id"`
	FlightType  string      `json:"flight_type"`
	FlightPhase FlightPhase `json:"flight_phase"`
	Date        time.Time   `json:"date"`
	Timestamp   *time.Time  `json:"timestamp,omitempty"`
	KSS         int         `json:"kss_score"`
	SP          int         `json:"sp_score"`
	PVT         *PVTResult  `json:"pvt_result,omitempty"`
}

// ColumnOptions selects the optional trailing columns
type ColumnOptions struct {
	Timestamp bool
	PVT       bool
}

// Columns returns the header row for the given options
func Columns(opts ColumnOptions) []string {
	cols := []string{ColPilotID, ColFlightType, ColFlightPhase, ColDate, ColKSS, ColSP}
	if opts.Timestamp {
		cols = append(cols, ColTimeSubmitted)
	}
	if opts.PVT {
		cols = append(cols, ColBestPVT, ColPVTLapses)
	}
	return cols
}

// Row renders the record as cell strings in the order of cols
func (r FatigueRecord) Row(cols []string) []string {
	row := make([]string, len(cols))
	for i, col := range cols {
		row[i] = r.cell(col)
	}
	return row
}

func (r FatigueRecord) cell(col string) string {
	switch col {
	case ColPilotID:
		return r.PilotID
	case ColFlightType:
		return r.FlightType
	case ColFlightPhase:
		return string(r.FlightPhase)
	case ColDate:
		return r.Date.Format(DateLayout)
	case ColKSS:
		return strconv.Itoa(r.KSS)
	case ColSP:
		return strconv.Itoa(r.SP)
	case ColTimeSubmitted:
		if r.Timestamp == nil {
			return ""
		}
		return r.Timestamp.Format(TimestampLayout)
	case ColBestPVT:
		if r.PVT == nil {
			return ""
		}
		return strconv.FormatFloat(r.PVT.BestReactionMs, 'f', 1, 64)
	case ColPVTLapses:
		if r.PVT == nil {
			return ""
		}
		return strconv.Itoa(r.PVT.Lapses)
	}
	return ""
}

// ParseRow rebuilds a record from a data row using header to locate columns.
// Unknown columns are skipped, missing optional columns stay zero.
func ParseRow(header, row []string) (FatigueRecord, error) {
	var rec FatigueRecord
	var pvt PVTResult
	hasPVT := false

	for i, col := range header {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}

		switch strings.TrimSpace(col) {
		case ColPilotID:
			rec.PilotID = value
		case ColFlightType:
			rec.FlightType = value
		case ColFlightPhase:
			rec.FlightPhase = FlightPhase(value)
		case ColDate:
			d, err := time.Parse(DateLayout, value)
			if err != nil {
				return rec, fmt.Errorf("invalid %s %q: %w", ColDate, value, err)
			}
			rec.Date = d
		case ColKSS:
			n, err := strconv.Atoi(value)
			if err != nil {
				return rec, fmt.Errorf("invalid %s %q: %w", ColKSS, value, err)
			}
			rec.KSS = n
		case ColSP:
			n, err := strconv.Atoi(value)
			if err != nil {
				return rec, fmt.Errorf("invalid %s %q: %w", ColSP, value, err)
			}
			rec.SP = n
		case ColTimeSubmitted:
			if value == "" {
				continue
			}
			ts, err := time.Parse(TimestampLayout, value)
			if err != nil {
				return rec, fmt.Errorf("invalid %s %q: %w", ColTimeSubmitted, value, err)
			}
			rec.Timestamp = &ts
		case ColBestPVT:
			if value == "" {
				continue
			}
			ms, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return rec, fmt.Errorf("invalid %s %q: %w", ColBestPVT, value, err)
			}
			pvt.BestReactionMs = ms
			hasPVT = true
		case ColPVTLapses:
			if value == "" {
				continue
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return rec, fmt.Errorf("invalid %s %q: %w", ColPVTLapses, value, err)
			}
			pvt.Lapses = n
			hasPVT = true
		}
	}

	if hasPVT {
		rec.PVT = &pvt
	}
	return rec, nil
}

// DuplicateKey is the identity used by the duplicate-submission check
func (r FatigueRecord) DuplicateKey() [3]string {
	return [3]string{r.PilotID, string(r.FlightPhase), r.Date.Format(DateLayout)}
}
