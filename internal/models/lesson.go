package models

import "time"

// ScheduleEntry is one weekly slot of a course, the unit lessons are rolled out from.
type ScheduleEntry struct {
	ID           int        `db:"id" json:"id"`
	CourseID     int        `db:"kurs_id" json:"course_id"`
	SchoolYearID int        `db:"schuljahr_id" json:"school_year_id"`
	RoomID       *int       `db:"raum_id" json:"room_id,omitempty"`
	Weekday      int        `db:"wochentag_id" json:"weekday"`
	Period       int        `db:"stunde" json:"period"`
	ValidFrom    time.Time  `db:"gueltig_ab" json:"valid_from"`
	ValidUntil   *time.Time `db:"gueltig_bis" json:"valid_until,omitempty"`
}

// OccurrenceStatus is the outcome of one scheduled lesson.
type OccurrenceStatus string

const (
	OccurrenceHeld        OccurrenceStatus = "gehalten"
	OccurrenceCancelled   OccurrenceStatus = "entfallen"
	OccurrenceSubstituted OccurrenceStatus = "vertretung"
)

// TakesPlace reports whether students attend the occurrence.
func (s OccurrenceStatus) TakesPlace() bool {
	return s == OccurrenceHeld || s == OccurrenceSubstituted
}

// LessonOccurrence is a dated instance of a schedule entry.
type LessonOccurrence struct {
	ID                  int              `db:"id" json:"id"`
	ScheduleEntryID     int              `db:"stundenplan_id" json:"schedule_entry_id"`
	Date                time.Time        `db:"datum" json:"date"`
	Status              OccurrenceStatus `db:"status" json:"status"`
	SubstituteTeacherID *int             `db:"vertretungslehrer_id" json:"substitute_teacher_id,omitempty"`
	IsExam              bool             `db:"ist_klausur" json:"is_exam"`
}

// AttendanceStatus is the per-student outcome of a lesson.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "anwesend"
	AttendanceExcused   AttendanceStatus = "fehlend_entschuldigt"
	AttendanceUnexcused AttendanceStatus = "fehlend_unentschuldigt"
	AttendanceLate      AttendanceStatus = "verspaetet"
)

// AttendanceRecord records one student at one occurrence.
type AttendanceRecord struct {
	ID           int              `db:"id" json:"id"`
	OccurrenceID int              `db:"unterrichtsstunde_id" json:"occurrence_id"`
	StudentID    int              `db:"schueler_id" json:"student_id"`
	Status       AttendanceStatus `db:"status" json:"status"`
	LateMinutes  int              `db:"verspaetung_minuten" json:"late_minutes"`
}
