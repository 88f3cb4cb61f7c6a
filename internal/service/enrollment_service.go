package service

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

const (
	advancedPerStudent = 2
	basicPerStudent    = 8
	schoolStartAge     = 6
	defaultTrack       = "normal"
)

// EnrollmentConfig anchors student ages to the school year.
type EnrollmentConfig struct {
	SchoolYearID  int
	ReferenceYear int
}

// StudentBody is the generated student population with its course choices.
type StudentBody struct {
	Students    []*models.Student
	Statuses    []models.StudentStatus
	Enrollments []models.Enrollment
}

// EnrolledIn returns the student ids per course id.
func (b *StudentBody) EnrolledIn() map[int][]int {
	out := make(map[int][]int)
	for _, e := range b.Enrollments {
		out[e.CourseID] = append(out[e.CourseID], e.StudentID)
	}
	return out
}

// EnrollmentService creates students and enrolls them into courses.
type EnrollmentService struct {
	rng        *rand.Rand
	identities *IdentityGenerator
	cfg        EnrollmentConfig
	logger     *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(rng *rand.Rand, identities *IdentityGenerator, cfg EnrollmentConfig, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if identities == nil {
		identities = NewIdentityGenerator(rng, DefaultNameLists())
	}
	if cfg.SchoolYearID <= 0 {
		cfg.SchoolYearID = 1
	}
	if cfg.ReferenceYear <= 0 {
		cfg.ReferenceYear = 2026
	}
	return &EnrollmentService{rng: rng, identities: identities, cfg: cfg, logger: logger}
}

// Enroll fills every class and stage with students. Lower-stage students take
// all courses of their class plus one religion, one elective and one arts
// course where the grade offers them; upper-stage students pick two advanced
// and eight basic courses of their stage.
func (s *EnrollmentService) Enroll(classes []*models.SchoolClass, stages []models.Stage, courses []*models.Course) *StudentBody {
	body := &StudentBody{}
	byClass := make(map[int][]*models.Course)
	byGrade := make(map[string][]*models.Course)
	for _, c := range courses {
		if c.ClassBound() {
			byClass[c.Class.ID] = append(byClass[c.Class.ID], c)
		}
		byGrade[c.Grade] = append(byGrade[c.Grade], c)
	}

	for _, class := range classes {
		birthYear := s.cfg.ReferenceYear - class.GradeLevel() - schoolStartAge
		var religion, elective, arts []*models.Course
		for _, c := range byGrade[class.Grade] {
			switch {
			case c.Kind == models.CourseKindReligion:
				religion = append(religion, c)
			case c.Kind == models.CourseKindElective && isArtsSubject(c.Subject):
				arts = append(arts, c)
			case c.Kind == models.CourseKindElective:
				elective = append(elective, c)
			}
		}
		for i := 0; i < class.Headcount; i++ {
			classID := class.ID
			student := s.newStudent(body, class.Grade, birthYear, &classID)
			for _, c := range byClass[class.ID] {
				body.enroll(student, c)
			}
			for _, group := range [][]*models.Course{religion, elective, arts} {
				if len(group) > 0 {
					body.enroll(student, group[s.rng.Intn(len(group))])
				}
			}
		}
	}

	for _, stage := range stages {
		birthYear := s.cfg.ReferenceYear - stageBirthOffset[stage.Name] - schoolStartAge
		var basic, advanced []*models.Course
		for _, c := range byGrade[stage.Name] {
			switch c.Kind {
			case models.CourseKindBasic:
				basic = append(basic, c)
			case models.CourseKindAdvanced:
				advanced = append(advanced, c)
			}
		}
		for i := 0; i < stage.Headcount; i++ {
			student := s.newStudent(body, stage.Name, birthYear, nil)
			if stage.Name != "EF" && len(advanced) >= advancedPerStudent {
				for _, c := range s.sample(advanced, advancedPerStudent) {
					body.enroll(student, c)
				}
			}
			if len(basic) >= basicPerStudent {
				for _, c := range s.sample(basic, basicPerStudent) {
					body.enroll(student, c)
				}
			}
		}
	}

	s.logger.Sugar().Infow("students enrolled", "students", len(body.Students), "enrollments", len(body.Enrollments))
	return body
}

func (s *EnrollmentService) newStudent(body *StudentBody, grade string, birthYear int, classID *int) *models.Student {
	first, last := s.identities.Person()
	student := &models.Student{
		ID:        len(body.Students) + 1,
		FirstName: first,
		LastName:  last,
		BirthDate: s.identities.BirthDate(birthYear, birthYear+1),
		Active:    true,
		Grade:     grade,
	}
	if classID != nil {
		student.ClassID = *classID
	}
	body.Students = append(body.Students, student)
	body.Statuses = append(body.Statuses, models.StudentStatus{
		ID:           student.ID,
		StudentID:    student.ID,
		SchoolYearID: s.cfg.SchoolYearID,
		Grade:        grade,
		ClassID:      classID,
		Track:        defaultTrack,
	})
	return student
}

// sample draws n distinct courses.
func (s *EnrollmentService) sample(courses []*models.Course, n int) []*models.Course {
	perm := s.rng.Perm(len(courses))
	out := make([]*models.Course, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, courses[idx])
	}
	return out
}

func (b *StudentBody) enroll(student *models.Student, c *models.Course) {
	b.Enrollments = append(b.Enrollments, models.Enrollment{StudentID: student.ID, CourseID: c.ID})
}

func isArtsSubject(subject string) bool {
	return subject == "KU" || subject == "MU"
}
