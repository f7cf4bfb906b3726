// Package sheets reads judges' scoresheets and writes standings workbooks.
package sheets

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/intramurals/internal/domain/model"
)

// Sentinel kinds for workbook errors.
var (
	ErrNoSheet   = errors.New("workbook has no sheets")
	ErrNoHeader  = errors.New("scoresheet header must start with a Team column")
	ErrNoResults = errors.New("scoresheet has no team rows")
)

const (
	colTeam     = "team"
	colMerits   = "merits"
	colDemerits = "demerits"

	// StandingsSheet names the exported worksheet.
	StandingsSheet = "Standings"
)

// ParseResults reads the first sheet of a scoresheet workbook. The header row
// is "Team | <criterion>... | Merits | Demerits"; the merit and demerit
// columns are optional. Non-numeric cells count as 0 and blank team rows are
// skipped.
func ParseResults(data []byte) ([]model.EventResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open scoresheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 || !strings.EqualFold(strings.TrimSpace(rows[0][0]), colTeam) {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var results []model.EventResult
	for line, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		res := model.EventResult{
			TeamID:         strings.TrimSpace(row[0]),
			CriteriaScores: map[string]model.Points{},
		}
		for i := 1; i < len(header); i++ {
			if header[i] == "" {
				continue
			}
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			pts := model.ParsePoints(cell)
			switch strings.ToLower(header[i]) {
			case colMerits:
				if pts != 0 {
					res.Merits = append(res.Merits, model.Adjustment{Name: "Scoresheet merit", Points: pts})
				}
			case colDemerits:
				if pts != 0 {
					res.Demerits = append(res.Demerits, model.Adjustment{Name: "Scoresheet demerit", Points: pts})
				}
			default:
				res.CriteriaScores[header[i]] = pts
			}
		}
		if len(res.CriteriaScores) == 0 && len(res.Merits) == 0 && len(res.Demerits) == 0 {
			return nil, fmt.Errorf("scoresheet line %d: team %q has no scores", line+2, res.TeamID)
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// Template builds an empty scoresheet for an event.
func Template(ev model.Event, teamIDs []string) ([]byte, error) {
	header := []any{"Team"}
	for _, c := range ev.Criteria {
		header = append(header, c.Name)
	}
	header = append(header, "Merits", "Demerits")

	rows := [][]any{header}
	for _, id := range teamIDs {
		rows = append(rows, []any{id})
	}
	return write(ev.Name, rows)
}

// ExportStandings writes the ranked teams with one points column per event.
func ExportStandings(teams []model.Team, events []model.Event) ([]byte, error) {
	header := []any{"Rank", "Team", "Name", "Score", "1st", "2nd", "3rd", "Merits", "Demerits"}
	for _, ev := range events {
		header = append(header, ev.Name)
	}

	rows := [][]any{header}
	for _, t := range teams {
		points := make(map[string]int, len(t.EventScores))
		for _, es := range t.EventScores {
			points[es.EventID] = es.CompetitionPoints
		}
		row := []any{
			t.Rank, t.ID, t.Name, t.Score,
			t.PlacementStats.First, t.PlacementStats.Second, t.PlacementStats.Third,
			t.PlacementStats.Merits, t.PlacementStats.Demerits,
		}
		for _, ev := range events {
			if p, ok := points[ev.ID]; ok {
				row = append(row, p)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return write(StandingsSheet, rows)
}

func write(sheet string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet = sheetName(sheet)
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims characters Excel rejects and caps the length at 31.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return "Sheet1"
	}
	if r := []rune(s); len(r) > 31 {
		s = string(r[:31])
	}
	return s
}
