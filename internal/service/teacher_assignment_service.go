package service

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
)

const (
	relatedSubjectChance = 0.7
	// crossSubjectThreshold lets an under-loaded teacher help out in other subjects.
	crossSubjectThreshold = 15
	crossSubjectTarget    = 20
	minimumDeputation     = 13
	fullTimeHours         = 25.5
	teacherBirthFrom      = 1960
	teacherBirthTo        = 1995
)

// TeacherAssignmentService builds a teacher roster that covers every course.
type TeacherAssignmentService struct {
	rng        *rand.Rand
	identities *IdentityGenerator
	logger     *zap.Logger
}

// NewTeacherAssignmentService constructs the assignment engine.
func NewTeacherAssignmentService(rng *rand.Rand, identities *IdentityGenerator, logger *zap.Logger) *TeacherAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if identities == nil {
		identities = NewIdentityGenerator(rng, DefaultNameLists())
	}
	return &TeacherAssignmentService{rng: rng, identities: identities, logger: logger}
}

// Assign creates teachers one at a time until every course has one. Each new
// teacher is qualified in the subject with the most open courses plus a second
// subject and claims every collision-free course within the weekly cap.
func (s *TeacherAssignmentService) Assign(catalog []*models.Course) ([]*models.Teacher, error) {
	open := make([]*models.Course, 0, len(catalog))
	for _, c := range catalog {
		if c.Teacher == nil {
			open = append(open, c)
		}
	}

	var roster []*models.Teacher
	for len(open) > 0 {
		demand := subjectDemand(open)
		main := topSubject(demand)
		teacher := models.NewTeacher(len(roster)+1, main, s.secondSubject(main, demand))

		claimed := make(map[*models.Course]bool)
		for _, c := range open {
			if teacher.Qualified(c.Subject) && teacher.CanClaim(c) {
				teacher.Claim(c)
				claimed[c] = true
			}
		}
		if teacher.Hours < crossSubjectThreshold {
			for _, c := range open {
				if claimed[c] || !teacher.CanClaim(c) {
					continue
				}
				teacher.Claim(c)
				teacher.AddSubject(c.Subject)
				claimed[c] = true
				if teacher.Hours >= crossSubjectTarget {
					break
				}
			}
		}
		if len(claimed) == 0 {
			return roster, appErrors.Clone(appErrors.ErrAssignmentStall,
				fmt.Sprintf("no placeable course left for subject %s (%d open courses)", main, len(open)))
		}

		s.nameTeacher(teacher)
		roster = append(roster, teacher)

		next := open[:0:0]
		for _, c := range open {
			if !claimed[c] {
				next = append(next, c)
			}
		}
		open = next
	}

	s.logger.Sugar().Infow("teachers assigned", "teachers", len(roster), "courses", len(catalog))
	return roster, nil
}

func (s *TeacherAssignmentService) nameTeacher(t *models.Teacher) {
	t.FirstName, t.LastName = s.identities.Person()
	t.Abbreviation = s.identities.Abbreviation(t.FirstName, t.LastName)
	t.BirthDate = s.identities.BirthDate(teacherBirthFrom, teacherBirthTo)
}

// secondSubject usually picks a related subject, otherwise any other subject still in demand.
func (s *TeacherAssignmentService) secondSubject(main string, demand map[string]int) string {
	if related, ok := relatedSubjects[main]; ok && s.rng.Float64() < relatedSubjectChance {
		return related[s.rng.Intn(len(related))]
	}
	candidates := make([]string, 0, len(demand))
	for subject := range demand {
		if subject != main {
			candidates = append(candidates, subject)
		}
	}
	if len(candidates) == 0 {
		return main
	}
	sort.Strings(candidates)
	return candidates[s.rng.Intn(len(candidates))]
}

// AssignHomeroomTeachers gives every class a teacher qualified in D, M or E.
func (s *TeacherAssignmentService) AssignHomeroomTeachers(classes []*models.SchoolClass, roster []*models.Teacher) {
	if len(roster) == 0 {
		return
	}
	var candidates []*models.Teacher
	for _, t := range roster {
		for subject := range homeroomSubjects {
			if t.Qualified(subject) {
				candidates = append(candidates, t)
				break
			}
		}
	}
	for _, c := range classes {
		if len(candidates) == 0 {
			c.HomeroomTeacherID = roster[0].ID
			continue
		}
		c.HomeroomTeacherID = candidates[s.rng.Intn(len(candidates))].ID
	}
}

// Deputations derives the contracted hour targets of the roster.
func Deputations(roster []*models.Teacher, schoolYearID int) []models.Deputation {
	out := make([]models.Deputation, 0, len(roster))
	for _, t := range roster {
		target := t.Hours
		if target < minimumDeputation {
			target = minimumDeputation
		}
		out = append(out, models.Deputation{
			ID:             t.ID,
			TeacherID:      t.ID,
			SchoolYearID:   schoolYearID,
			Target:         target,
			Available:      t.Hours,
			EmploymentRate: math.Round(float64(target)/fullTimeHours*100*100) / 100,
		})
	}
	return out
}

func subjectDemand(courses []*models.Course) map[string]int {
	demand := make(map[string]int)
	for _, c := range courses {
		demand[c.Subject]++
	}
	return demand
}

// topSubject returns the subject with the highest demand, ties broken by code.
func topSubject(demand map[string]int) string {
	best, bestCount := "", -1
	for subject, count := range demand {
		if count > bestCount || (count == bestCount && subject < best) {
			best, bestCount = subject, count
		}
	}
	return best
}
