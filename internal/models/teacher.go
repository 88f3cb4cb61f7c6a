package models

import (
	"sort"
	"time"
)

// MaxTeacherHours is the hard weekly cap on assigned teaching hours.
const MaxTeacherHours = 26

// Teacher is created by the assignment engine and accumulates courses.
type Teacher struct {
	ID           int       `json:"id"`
	Abbreviation string    `json:"abbreviation"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	BirthDate    time.Time `json:"birth_date"`
	Hours        int       `json:"hours"`

	subjects map[string]struct{}
	slots    SlotSet
	courses  []*Course
}

// NewTeacher builds a teacher qualified in the given subjects.
func NewTeacher(id int, subjects ...string) *Teacher {
	t := &Teacher{
		ID:       id,
		subjects: make(map[string]struct{}, len(subjects)),
		slots:    make(SlotSet),
	}
	for _, s := range subjects {
		t.subjects[s] = struct{}{}
	}
	return t
}

// Qualified reports whether the teacher may teach subject.
func (t *Teacher) Qualified(subject string) bool {
	_, ok := t.subjects[subject]
	return ok
}

// AddSubject extends the qualification set.
func (t *Teacher) AddSubject(subject string) {
	t.subjects[subject] = struct{}{}
}

// Subjects returns the qualification set in lexicographic order.
func (t *Teacher) Subjects() []string {
	out := make([]string, 0, len(t.subjects))
	for s := range t.subjects {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CanClaim checks collision and the weekly cap for course.
func (t *Teacher) CanClaim(c *Course) bool {
	if t.Hours+c.Hours > MaxTeacherHours {
		return false
	}
	return !t.slots.Overlaps(c.Slots)
}

// Claim attaches course to the teacher. Callers check CanClaim first.
func (t *Teacher) Claim(c *Course) {
	t.slots.Add(c.Slots...)
	t.Hours += c.Hours
	t.courses = append(t.courses, c)
	c.Teacher = t
}

// Courses returns the claimed courses in claim order.
func (t *Teacher) Courses() []*Course {
	return t.courses
}

// Busy reports whether the teacher already teaches at slot.
func (t *Teacher) Busy(slot TimeSlot) bool {
	return t.slots.Has(slot)
}

// Deputation is the contracted weekly hour target, used for reporting only.
type Deputation struct {
	ID             int     `db:"id" json:"id"`
	TeacherID      int     `db:"lehrer_id" json:"teacher_id"`
	SchoolYearID   int     `db:"schuljahr_id" json:"school_year_id"`
	Target         int     `db:"deputat_soll" json:"target"`
	Credit         int     `db:"anrechnungsstunden" json:"credit"`
	Reduction      int     `db:"ermaessigungsstunden" json:"reduction"`
	Available      int     `db:"deputat_unterricht_verfuegbar" json:"available"`
	EmploymentRate float64 `db:"beschaeftigungsumfang_prozent" json:"employment_rate"`
	Note           string  `db:"bemerkung" json:"note"`
}

// Qualification links a teacher to a subject.
type Qualification struct {
	TeacherID int `db:"lehrer_id" json:"teacher_id"`
	SubjectID int `db:"fach_id" json:"subject_id"`
}
