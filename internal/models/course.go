package models

// CourseScope tells which group of students a course is scheduled for.
type CourseScope string

const (
	CourseScopeClass CourseScope = "class"
	CourseScopeBand  CourseScope = "band"
	CourseScopeLane  CourseScope = "lane"
)

// CourseKind is the persisted course type.
type CourseKind string

const (
	CourseKindClass    CourseKind = "Klassenunterricht"
	CourseKindReligion CourseKind = "Religion/Ethik"
	CourseKindElective CourseKind = "Wahlpflicht"
	CourseKindBasic    CourseKind = "GK"
	CourseKindAdvanced CourseKind = "LK"
)

// Course is one weekly teaching unit. Slots are frozen once the catalog is built;
// Teacher and Room are attached by the later stages.
type Course struct {
	ID      int          `json:"id"`
	Label   string       `json:"label"`
	Subject string       `json:"subject"`
	Hours   int          `json:"hours"`
	Scope   CourseScope  `json:"scope"`
	Kind    CourseKind   `json:"kind"`
	Grade   string       `json:"grade"`
	Group   string       `json:"group,omitempty"`
	Class   *SchoolClass `json:"-"`
	Slots   []TimeSlot   `json:"slots"`
	Teacher *Teacher     `json:"-"`
	Room    *Room        `json:"-"`
}

// ClassBound reports whether the course belongs to a single class section.
func (c *Course) ClassBound() bool {
	return c.Scope == CourseScopeClass && c.Class != nil
}

// Shortfall is the number of required hours without a slot.
func (c *Course) Shortfall() int {
	if missing := c.Hours - len(c.Slots); missing > 0 {
		return missing
	}
	return 0
}

// SlotsOnDay returns the course periods of one day in ascending order.
func (c *Course) SlotsOnDay(day int) []int {
	var periods []int
	for _, s := range c.Slots {
		if s.Day == day {
			periods = append(periods, s.Period)
		}
	}
	for i := 1; i < len(periods); i++ {
		for j := i; j > 0 && periods[j] < periods[j-1]; j-- {
			periods[j], periods[j-1] = periods[j-1], periods[j]
		}
	}
	return periods
}

// CourseRow is the persisted course shape.
type CourseRow struct {
	ID           int    `db:"id" json:"id"`
	SchoolYearID int    `db:"schuljahr_id" json:"school_year_id"`
	SectionID    *int   `db:"abschnitt_id" json:"section_id,omitempty"`
	Label        string `db:"bezeichnung" json:"label"`
	SubjectID    int    `db:"fach_id" json:"subject_id"`
	TeacherID    *int   `db:"lehrer_id" json:"teacher_id,omitempty"`
	Grade        string `db:"jahrgangsstufe" json:"grade"`
	ClassID      *int   `db:"klasse_id" json:"class_id,omitempty"`
	Kind         string `db:"kursart" json:"kind"`
	WeeklyHours  int    `db:"wochenstunden" json:"weekly_hours"`
	Group        string `db:"parallelgruppe" json:"group,omitempty"`
}
