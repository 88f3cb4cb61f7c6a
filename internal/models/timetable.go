package models

import "time"

// SchoolYear is the single school year a run generates data for.
type SchoolYear struct {
	ID     int       `db:"id" json:"id"`
	Label  string    `db:"bezeichnung" json:"label"`
	Start  time.Time `db:"startdatum" json:"start"`
	End    time.Time `db:"enddatum" json:"end"`
	Active bool      `db:"aktiv" json:"active"`
}

// Term is a half-year section of a school year.
type Term struct {
	ID           int       `db:"id" json:"id"`
	SchoolYearID int       `db:"schuljahr_id" json:"school_year_id"`
	Code         string    `db:"code" json:"code"`
	Start        time.Time `db:"startdatum" json:"start"`
	End          time.Time `db:"enddatum" json:"end"`
}

// Timetable is everything one generation run produced.
type Timetable struct {
	SchoolYear  SchoolYear
	Terms       []Term
	Subjects    []Subject
	Classes     []*SchoolClass
	Courses     []*Course
	Teachers    []*Teacher
	Rooms       []*Room
	Students    []*Student
	Statuses    []StudentStatus
	Enrollments []Enrollment
	Deputations []Deputation
	Schedule    []ScheduleEntry
	Occurrences []LessonOccurrence
	Attendance  []AttendanceRecord
}

// SubjectID returns the persisted id of a subject code, or 0.
func (t *Timetable) SubjectID(code string) int {
	for _, s := range t.Subjects {
		if s.Code == code {
			return s.ID
		}
	}
	return 0
}
