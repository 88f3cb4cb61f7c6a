package models

import "strconv"

// SchoolClass is a lower-stage class section, e.g. 7b.
type SchoolClass struct {
	ID                int    `db:"id" json:"id"`
	SchoolYearID      int    `db:"schuljahr_id" json:"school_year_id"`
	Grade             string `db:"jahrgangsstufe" json:"grade"`
	Section           string `db:"bezeichnung" json:"section"`
	HomeroomTeacherID int    `db:"klassenlehrer_id" json:"homeroom_teacher_id"`
	Headcount         int    `db:"-" json:"headcount"`
}

// Key is the grade/section label used in course labels and room names.
func (c *SchoolClass) Key() string {
	return c.Grade + c.Section
}

// GradeLevel returns the numeric grade, or 0 for non-numeric grades.
func (c *SchoolClass) GradeLevel() int {
	return GradeLevel(c.Grade)
}

// GradeLevel parses a lower-stage grade label.
func GradeLevel(grade string) int {
	n, err := strconv.Atoi(grade)
	if err != nil {
		return 0
	}
	return n
}

// Stage is an upper-stage year group scheduled in lanes.
type Stage struct {
	Name      string `json:"name" csv:"stufe"`
	Headcount int    `json:"headcount" csv:"anzahl"`
}

// GradeRoster lists the sections of one grade with their headcounts.
type GradeRoster struct {
	Grade    string         `json:"grade"`
	Sections []SectionCount `json:"sections"`
}

// SectionCount is one section of a grade roster.
type SectionCount struct {
	Section   string `json:"section" csv:"klasse"`
	Headcount int    `json:"headcount" csv:"anzahl"`
}
