package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/sma-timetable-generator/internal/service"
)

// ReportFile is the name of the constraint report written next to the exports.
const ReportFile = "pruefbericht.csv"

// courseLoadRow is one line of the teacher load table.
type courseLoadRow struct {
	Abbreviation string `csv:"kuerzel"`
	Subjects     string `csv:"faecher"`
	Courses      int    `csv:"kurse"`
	Hours        int    `csv:"stunden"`
}

// MarshalReport renders the constraint findings as delimited text.
func MarshalReport(report service.ConstraintReport, delim rune) ([]byte, error) {
	rows := report.Violations
	if rows == nil {
		rows = []service.Violation{}
	}
	return marshal(&rows, delim)
}

// MarshalTeacherLoad renders one row per teacher with subjects, course count and hours.
func MarshalTeacherLoad(result *service.GenerationResult, delim rune) ([]byte, error) {
	rows := make([]courseLoadRow, 0, len(result.Timetable.Teachers))
	for _, t := range result.Timetable.Teachers {
		subjects := ""
		for i, s := range t.Subjects() {
			if i > 0 {
				subjects += ","
			}
			subjects += s
		}
		rows = append(rows, courseLoadRow{Abbreviation: t.Abbreviation, Subjects: subjects, Courses: len(t.Courses()), Hours: t.Hours})
	}
	return marshal(&rows, delim)
}

func marshal(rows interface{}, delim rune) ([]byte, error) {
	if delim == 0 {
		delim = ';'
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	w.Comma = delim
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(w)); err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return buf.Bytes(), nil
}
