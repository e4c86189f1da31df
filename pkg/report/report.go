// Package report writes a spreadsheet summary of a simulation run.
package report

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/daysim/daysim/pkg/choice"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/scheduler"
)

// Sheet names.
const (
	SheetSummary = "Summary"
	SheetModels  = "Models"
	SheetFaults  = "Faults"
	SheetOutputs = "Outputs"
)

// FileName is the report's name inside the output directory.
const FileName = "run_report.xlsx"

// Report is everything the workbook shows.
type Report struct {
	Version string
	Summary *scheduler.Summary
	Rows    map[string]int64
	Files   []string
}

// Write saves the workbook to dir and returns its path.
func Write(dir string, r Report) (string, error) {
	if r.Summary == nil {
		return "", simerrors.New(simerrors.CodeWriteFailed, "report has no run summary")
	}
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", simerrors.Wrap(err, simerrors.CodeWriteFailed, "create header style")
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return "", simerrors.Wrap(err, simerrors.CodeWriteFailed, "rename sheet")
	}
	for _, name := range []string{SheetModels, SheetFaults, SheetOutputs} {
		if _, err := f.NewSheet(name); err != nil {
			return "", simerrors.Wrapf(err, simerrors.CodeWriteFailed, "create sheet %s", name)
		}
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(r)},
		{SheetModels, modelRows(&r.Summary.Counters.Models)},
		{SheetFaults, faultRows(r.Summary.Faults)},
		{SheetOutputs, outputRows(r.Rows, r.Files)},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return "", err
		}
		last, _ := excelize.CoordinatesToCellName(len(s.rows[0]), 1)
		if err := f.SetCellStyle(s.name, "A1", last, header); err != nil {
			return "", simerrors.Wrap(err, simerrors.CodeWriteFailed, "style header")
		}
		_ = f.SetColWidth(s.name, "A", "A", 32)
	}

	path := filepath.Join(dir, FileName)
	if err := f.SaveAs(path); err != nil {
		return "", simerrors.Wrap(err, simerrors.CodeWriteFailed, "save report").WithContext("path", path)
	}
	return path, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return simerrors.Wrap(err, simerrors.CodeWriteFailed, "cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return simerrors.Wrapf(err, simerrors.CodeWriteFailed, "write %s row %d", sheet, i+1)
		}
	}
	return nil
}

func summaryRows(r Report) [][]any {
	s := r.Summary
	c := s.Counters
	return [][]any{
		{"Metric", "Value"},
		{"Run ID", s.RunID},
		{"Version", r.Version},
		{"Workers", s.Workers},
		{"Roster households", s.Roster},
		{"Sampled households", s.Sampled},
		{"Resumed households", s.Resumed},
		{"Simulated households", s.Simulated},
		{"Exported households", s.Exported},
		{"Faulted households", len(s.Faults)},
		{"Household days", c.Days},
		{"Valid days", c.ValidDays},
		{"Abandoned days", c.AbandonedDays},
		{"Invalid attempts", c.InvalidAttempts},
		{"Tours", c.Tours},
		{"Subtours", c.Subtours},
		{"Joint tours", c.JointTours},
		{"Full half tours", c.FullHalfTours},
		{"Partial half tours", c.PartialHalfTours},
		{"Trips", c.Trips},
		{"Model calls", c.Models.TotalCalls()},
		{"Duration (s)", s.Duration.Seconds()},
	}
}

func modelRows(c *choice.Counters) [][]any {
	rows := [][]any{{"Model", "Calls", "Invalid", "Invalid %"}}
	for _, id := range choice.AllIDs() {
		calls, invalid := c.Calls[id], c.Invalid[id]
		share := 0.0
		if calls > 0 {
			share = float64(invalid) / float64(calls) * 100
		}
		rows = append(rows, []any{id.String(), calls, invalid, share})
	}
	return rows
}

func faultRows(faults []scheduler.Fault) [][]any {
	rows := [][]any{{"Household", "Code", "Error"}}
	for _, f := range faults {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		rows = append(rows, []any{f.HouseholdID, string(f.Code), msg})
	}
	return rows
}

func outputRows(counts map[string]int64, files []string) [][]any {
	rows := [][]any{{"Table", "Rows"}}
	tables := make([]string, 0, len(counts))
	for name := range counts {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		rows = append(rows, []any{name, counts[name]})
	}
	for _, file := range files {
		rows = append(rows, []any{fmt.Sprintf("file: %s", filepath.Base(file)), ""})
	}
	return rows
}
