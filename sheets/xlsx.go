package sheets

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vainnor/fatigue-report/types"
)

const (
	SheetName = "KSS_SP_Data"
	XLSXMime  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Encode writes records as a single-sheet workbook with a header row
func Encode(records []types.FatigueRecord, cols []string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := cellValues(rec, cols)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads every data row of the first sheet back into records
func Decode(r io.Reader) ([]types.FatigueRecord, error) {
	header, rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	records := make([]types.FatigueRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := types.ParseRow(header, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readSheet returns the header and the non-blank data rows of the first sheet
func readSheet(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("no worksheet found")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if !blankRow(row) {
			data = append(data, row)
		}
	}
	return rows[0], data, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cellValues keeps scores and reaction times numeric in the workbook
func cellValues(rec types.FatigueRecord, cols []string) []interface{} {
	text := rec.Row(cols)
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		switch col {
		case types.ColKSS:
			values[i] = rec.KSS
		case types.ColSP:
			values[i] = rec.SP
		case types.ColBestPVT:
			if rec.PVT != nil {
				values[i] = rec.PVT.BestReactionMs
				continue
			}
			values[i] = ""
		case types.ColPVTLapses:
			if rec.PVT != nil {
				values[i] = rec.PVT.Lapses
				continue
			}
			values[i] = ""
		default:
			values[i] = text[i]
		}
	}
	return values
}
