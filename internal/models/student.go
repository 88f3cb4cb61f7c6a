package models

import "time"

// Student is a synthetic pupil.
type Student struct {
	ID        int       `db:"id" json:"id"`
	FirstName string    `db:"vorname" json:"first_name"`
	LastName  string    `db:"nachname" json:"last_name"`
	BirthDate time.Time `db:"geburtsdatum" json:"birth_date"`
	Active    bool      `db:"aktiv" json:"active"`
	Grade     string    `db:"-" json:"grade"`
	ClassID   int       `db:"-" json:"class_id,omitempty"`
}

// StudentStatus places a student in a grade and optionally a class for the school year.
type StudentStatus struct {
	ID           int    `db:"id" json:"id"`
	StudentID    int    `db:"schueler_id" json:"student_id"`
	SchoolYearID int    `db:"schuljahr_id" json:"school_year_id"`
	Grade        string `db:"jahrgangsstufe" json:"grade"`
	ClassID      *int   `db:"klasse_id" json:"class_id,omitempty"`
	Track        string `db:"status_laufbahn" json:"track"`
}

// Enrollment links a student to a course; independent of scheduling.
type Enrollment struct {
	StudentID int `db:"schueler_id" json:"student_id"`
	CourseID  int `db:"kurs_id" json:"course_id"`
}
