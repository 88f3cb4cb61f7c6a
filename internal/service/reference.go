package service

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

// Sek I grade bands: every class of a grade shares these slots.
var (
	religionBand = []models.TimeSlot{{Day: 2, Period: 3}, {Day: 2, Period: 4}}
	electiveBand = []models.TimeSlot{{Day: 3, Period: 8}, {Day: 3, Period: 9}, {Day: 4, Period: 1}}
	artsBand     = []models.TimeSlot{{Day: 1, Period: 1}, {Day: 1, Period: 2}}
)

const (
	basePeriodsPerDay = 6
	basicCourseHours  = 3
	advancedHours     = 5
	basicLaneCount    = 9
)

// stageLanes are the fixed weekly slot sets of the upper stage.
// Lanes 0..8 carry basic courses, lanes 9 and 10 advanced courses.
var stageLanes = [][]models.TimeSlot{
	{{Day: 0, Period: 1}, {Day: 0, Period: 2}, {Day: 3, Period: 3}},
	{{Day: 0, Period: 3}, {Day: 0, Period: 4}, {Day: 3, Period: 4}},
	{{Day: 0, Period: 5}, {Day: 0, Period: 6}, {Day: 3, Period: 5}},
	{{Day: 1, Period: 1}, {Day: 1, Period: 2}, {Day: 4, Period: 1}},
	{{Day: 1, Period: 3}, {Day: 1, Period: 4}, {Day: 4, Period: 2}},
	{{Day: 1, Period: 5}, {Day: 1, Period: 6}, {Day: 4, Period: 3}},
	{{Day: 2, Period: 1}, {Day: 2, Period: 2}, {Day: 4, Period: 4}},
	{{Day: 2, Period: 3}, {Day: 2, Period: 4}, {Day: 4, Period: 5}},
	{{Day: 2, Period: 5}, {Day: 2, Period: 6}, {Day: 4, Period: 6}},
	{{Day: 0, Period: 8}, {Day: 0, Period: 9}, {Day: 2, Period: 8}, {Day: 2, Period: 9}, {Day: 4, Period: 8}},
	{{Day: 1, Period: 8}, {Day: 1, Period: 9}, {Day: 3, Period: 8}, {Day: 3, Period: 9}, {Day: 4, Period: 7}},
}

// bandSpec describes one grade band offering.
type bandSpec struct {
	name     string
	subjects []string
	hours    int
	minGrade int
	slots    []models.TimeSlot
	kind     models.CourseKind
	label    func(grade, subject string) string
}

var gradeBands = []bandSpec{
	{
		name:     "Reli",
		subjects: []string{"ER", "KR", "PL"},
		hours:    2,
		minGrade: 5,
		slots:    religionBand,
		kind:     models.CourseKindReligion,
		label:    func(g, s string) string { return fmt.Sprintf("%s-%s", g, s) },
	},
	{
		name:     "WP",
		subjects: []string{"F", "L", "IF"},
		hours:    3,
		minGrade: 7,
		slots:    electiveBand,
		kind:     models.CourseKindElective,
		label:    func(g, s string) string { return fmt.Sprintf("%s-WP-%s", g, s) },
	},
	{
		name:     "KuMu",
		subjects: []string{"KU", "MU"},
		hours:    2,
		minGrade: 9,
		slots:    artsBand,
		kind:     models.CourseKindElective,
		label:    func(g, s string) string { return fmt.Sprintf("%s-%s-Band", g, s) },
	},
}

// SubjectHours is one row of a class subject table.
type SubjectHours struct {
	Subject string `csv:"fach"`
	Hours   int    `csv:"stunden"`
}

// classSubjects returns the class-bound subject table for a lower-stage grade.
func classSubjects(grade int) []SubjectHours {
	switch {
	case grade >= 9:
		return []SubjectHours{{"D", 4}, {"M", 4}, {"E", 4}, {"BI", 2}, {"PH", 2}, {"GE", 2}, {"EK", 2}, {"SP", 3}}
	case grade >= 7:
		return []SubjectHours{{"D", 4}, {"M", 4}, {"E", 4}, {"BI", 2}, {"PH", 2}, {"KU", 2}, {"MU", 1}, {"GE", 2}, {"EK", 2}, {"SP", 2}}
	default:
		return []SubjectHours{{"D", 4}, {"M", 4}, {"E", 4}, {"BI", 2}, {"PH", 2}, {"KU", 2}, {"MU", 2}, {"GE", 2}, {"EK", 2}, {"SP", 3}, {"IF", 1}}
	}
}

// upperStageSubjects is the lane rotation order of the upper stage.
var upperStageSubjects = []string{"D", "M", "E", "SP", "BI", "GE", "KU", "SW", "PH", "CH", "ER", "PL"}

var (
	coreSubjects     = map[string]bool{"D": true, "M": true, "E": true, "SP": true}
	advancedSubjects = map[string]bool{"D": true, "M": true, "E": true, "BI": true, "GE": true}
	homeroomSubjects = map[string]bool{"D": true, "M": true, "E": true}
)

// relatedSubjects seeds the second subject of a new teacher.
var relatedSubjects = map[string][]string{
	"M":  {"PH", "IF", "CH", "SP"},
	"D":  {"GE", "PA", "PL", "E"},
	"E":  {"F", "S", "L", "GE"},
	"BI": {"CH", "SP", "M"},
	"GE": {"SW", "D", "PL"},
	"PH": {"M", "IF"},
}

// specialistRooms maps a subject to the name prefix of its specialist rooms.
var specialistRooms = []struct {
	Subject string
	Prefix  string
}{
	{"PH", "Physikraum"},
	{"CH", "Chemieraum"},
	{"BI", "Biologieraum"},
	{"IF", "Computerraum"},
	{"SP", "Turnhalle"},
}

const (
	specialistRoomsPerSubject = 3
	genericRoomCount          = 20
)

// ReferenceData is the static school description a run starts from.
type ReferenceData struct {
	Subjects []models.Subject
	Grades   []models.GradeRoster
	Stages   []models.Stage
}

// DefaultReferenceData returns the built-in sample school.
func DefaultReferenceData() ReferenceData {
	subjects := []models.Subject{
		{Code: "D", Name: "Deutsch", Area: "I"},
		{Code: "E", Name: "Englisch", Area: "I"},
		{Code: "F", Name: "Französisch", Area: "I"},
		{Code: "L", Name: "Latein", Area: "I"},
		{Code: "S", Name: "Spanisch", Area: "I"},
		{Code: "KU", Name: "Kunst", Area: "I"},
		{Code: "MU", Name: "Musik", Area: "I"},
		{Code: "GE", Name: "Geschichte", Area: "II"},
		{Code: "EK", Name: "Erdkunde", Area: "II"},
		{Code: "SW", Name: "Sozialwissenschaften", Area: "II"},
		{Code: "PL", Name: "Philosophie", Area: "II"},
		{Code: "PA", Name: "Pädagogik", Area: "II"},
		{Code: "M", Name: "Mathematik", Area: "III"},
		{Code: "BI", Name: "Biologie", Area: "III"},
		{Code: "CH", Name: "Chemie", Area: "III"},
		{Code: "PH", Name: "Physik", Area: "III"},
		{Code: "IF", Name: "Informatik", Area: "III"},
		{Code: "ER", Name: "Evangelische Religionslehre", Area: "ohne"},
		{Code: "KR", Name: "Katholische Religionslehre", Area: "ohne"},
		{Code: "SP", Name: "Sport", Area: "ohne"},
	}
	for i := range subjects {
		subjects[i].ID = i + 1
	}

	roster := func(grade string, counts ...int) models.GradeRoster {
		r := models.GradeRoster{Grade: grade}
		for i, n := range counts {
			r.Sections = append(r.Sections, models.SectionCount{Section: string(rune('a' + i)), Headcount: n})
		}
		return r
	}

	return ReferenceData{
		Subjects: subjects,
		Grades: []models.GradeRoster{
			roster("5", 28, 29, 30, 31),
			roster("6", 28, 29, 29, 30),
			roster("7", 28, 28, 30, 31),
			roster("8", 29, 29, 30, 31),
			roster("9", 30, 29, 29, 28),
			roster("10", 29, 29, 30),
		},
		Stages: []models.Stage{
			{Name: "EF", Headcount: 117},
			{Name: "Q1", Headcount: 110},
			{Name: "Q2", Headcount: 103},
		},
	}
}

// Validate checks that every subject the tables reference exists.
func (r ReferenceData) Validate() error {
	known := make(map[string]bool, len(r.Subjects))
	for _, s := range r.Subjects {
		if s.Code == "" {
			return fmt.Errorf("subject without code")
		}
		known[s.Code] = true
	}
	required := append([]string{}, upperStageSubjects...)
	for _, band := range gradeBands {
		required = append(required, band.subjects...)
	}
	for _, grade := range []int{5, 7, 9} {
		for _, row := range classSubjects(grade) {
			required = append(required, row.Subject)
		}
	}
	for _, code := range required {
		if !known[code] {
			return fmt.Errorf("subject %s missing from catalog", code)
		}
	}
	for _, g := range r.Grades {
		if models.GradeLevel(g.Grade) == 0 {
			return fmt.Errorf("grade %q is not numeric", g.Grade)
		}
		for _, s := range g.Sections {
			if s.Section == "" || s.Headcount < 0 {
				return fmt.Errorf("grade %s has an invalid section", g.Grade)
			}
		}
	}
	for _, s := range r.Stages {
		if _, ok := stageBirthOffset[s.Name]; !ok {
			return fmt.Errorf("unknown stage %q", s.Name)
		}
		if s.Headcount < 0 {
			return fmt.Errorf("stage %s has a negative headcount", s.Name)
		}
	}
	return nil
}

// stageBirthOffset is the virtual grade used to derive upper-stage birth years.
var stageBirthOffset = map[string]int{"EF": 10, "Q1": 11, "Q2": 12}

// buildRooms creates the room catalog: homerooms, specialist rooms, then generic course rooms.
func buildRooms(classes []*models.SchoolClass) []*models.Room {
	rooms := make([]*models.Room, 0, len(classes)+len(specialistRooms)*specialistRoomsPerSubject+genericRoomCount)
	add := func(r *models.Room) {
		r.ID = len(rooms) + 1
		rooms = append(rooms, r)
	}
	for _, c := range classes {
		add(&models.Room{Name: "R-" + c.Key(), Category: models.RoomCategoryHomeroom, ClassKey: c.Key()})
	}
	for _, s := range specialistRooms {
		for i := 1; i <= specialistRoomsPerSubject; i++ {
			add(&models.Room{Name: fmt.Sprintf("%s %d", s.Prefix, i), Category: models.RoomCategorySpecialist, Subject: s.Subject})
		}
	}
	for i := 1; i <= genericRoomCount; i++ {
		add(&models.Room{Name: fmt.Sprintf("Kursraum %d", i), Category: models.RoomCategoryGeneric})
	}
	return rooms
}
