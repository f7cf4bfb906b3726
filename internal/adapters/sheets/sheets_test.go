package sheets

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/intramurals/internal/domain/model"
)

func buildXLSX(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		cells := make([]interface{}, len(row))
		for i, val := range row {
			cells[i] = val
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			t.Fatalf("set row %d: %v", idx+1, err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestParseResults(t *testing.T) {
	Convey("Given a scoresheet with criteria and adjustments", t, func() {
		data := buildXLSX(t, [][]string{
			{"Team", "Choreography", "Costume", "Merits", "Demerits"},
			{"red", "40", "25.5", "5", ""},
			{"", "1", "1"},
			{"blue", "n/a", "30", "", "2"},
		})

		results, err := ParseResults(data)

		Convey("Then each team row becomes a result", func() {
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 2)

			So(results[0].TeamID, ShouldEqual, "red")
			So(results[0].CriteriaScores["Choreography"], ShouldEqual, model.Points(40))
			So(results[0].CriteriaScores["Costume"], ShouldEqual, model.Points(25.5))
			So(results[0].Merits, ShouldHaveLength, 1)
			So(results[0].Merits[0].Points, ShouldEqual, model.Points(5))
			So(results[0].Demerits, ShouldBeEmpty)
		})

		Convey("Then unreadable cells count as zero", func() {
			So(results[1].CriteriaScores["Choreography"], ShouldEqual, model.Points(0))
			So(results[1].Demerits, ShouldHaveLength, 1)
		})
	})

	Convey("Given a sheet without a team header", t, func() {
		_, err := ParseResults(buildXLSX(t, [][]string{{"Name", "Score"}, {"red", "1"}}))
		So(errors.Is(err, ErrNoHeader), ShouldBeTrue)
	})

	Convey("Given a sheet without rows", t, func() {
		_, err := ParseResults(buildXLSX(t, [][]string{{"Team", "Score"}}))
		So(errors.Is(err, ErrNoResults), ShouldBeTrue)
	})

	Convey("Given data that is not a workbook", t, func() {
		_, err := ParseResults([]byte("team,score\nred,1\n"))
		So(err, ShouldNotBeNil)
	})
}

func TestTemplate(t *testing.T) {
	Convey("Given an event with two criteria", t, func() {
		ev := model.Event{Name: "Dance: Finals", Criteria: []model.Criterion{{Name: "Style"}, {Name: "Sync"}}}
		data, err := Template(ev, []string{"red", "blue"})
		So(err, ShouldBeNil)

		Convey("Then the template lists the criteria and the teams", func() {
			rows := readRows(t, data)
			So(rows[0], ShouldResemble, []string{"Team", "Style", "Sync", "Merits", "Demerits"})
			So(rows[1][0], ShouldEqual, "red")
		})
	})
}

func TestExportStandings(t *testing.T) {
	Convey("Given ranked teams and two events", t, func() {
		teams := []model.Team{
			{
				TeamRecord:     model.TeamRecord{ID: "red", Name: "Red"},
				Rank:           1,
				Score:          1050,
				PlacementStats: model.PlacementStats{First: 1, Merits: 1},
				EventScores:    []model.EventScore{{EventID: "dance", CompetitionPoints: 1000}},
			},
			{
				TeamRecord: model.TeamRecord{ID: "blue", Name: "Blue"},
				Rank:       2,
			},
		}
		events := []model.Event{{ID: "dance", Name: "Dance"}, {ID: "quiz", Name: "Quiz"}}

		data, err := ExportStandings(teams, events)
		So(err, ShouldBeNil)

		Convey("Then the workbook has a single standings sheet", func() {
			f, err := excelize.OpenReader(bytes.NewReader(data))
			So(err, ShouldBeNil)
			defer f.Close()
			So(f.GetSheetList(), ShouldResemble, []string{StandingsSheet})
		})

		Convey("Then each team gets a row with per-event points", func() {
			rows := readRows(t, data)
			So(rows, ShouldHaveLength, 3)
			So(rows[0], ShouldResemble, []string{"Rank", "Team", "Name", "Score", "1st", "2nd", "3rd", "Merits", "Demerits", "Dance", "Quiz"})
			So(rows[1][:10], ShouldResemble, []string{"1", "red", "Red", "1050", "1", "0", "0", "1", "0", "1000"})
		})
	})
}
