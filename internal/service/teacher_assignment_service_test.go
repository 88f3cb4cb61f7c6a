package service

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
)

func newAssignmentService(seed int64) *TeacherAssignmentService {
	rng := rand.New(rand.NewSource(seed))
	return NewTeacherAssignmentService(rng, NewIdentityGenerator(rng, DefaultNameLists()), nil)
}

func slots(pairs ...int) []models.TimeSlot {
	out := make([]models.TimeSlot, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.TimeSlot{Day: pairs[i], Period: pairs[i+1]})
	}
	return out
}

func TestTeacherAssignmentNeverClaimsCollidingCourses(t *testing.T) {
	a := &models.Course{ID: 1, Label: "a", Subject: "M", Hours: 2, Slots: slots(0, 1, 0, 2)}
	b := &models.Course{ID: 2, Label: "b", Subject: "M", Hours: 2, Slots: slots(0, 1, 0, 3)}
	c := &models.Course{ID: 3, Label: "c", Subject: "M", Hours: 2, Slots: slots(1, 1, 1, 2)}

	roster, err := newAssignmentService(1).Assign([]*models.Course{a, b, c})
	require.NoError(t, err)
	require.Len(t, roster, 2)

	assert.Same(t, a.Teacher, c.Teacher)
	assert.NotSame(t, a.Teacher, b.Teacher)
	assert.Equal(t, 4, roster[0].Hours)
	assert.Equal(t, 2, roster[1].Hours)
}

func TestTeacherAssignmentRespectsWeeklyCap(t *testing.T) {
	var courses []*models.Course
	next := 0
	for i := 0; i < 4; i++ {
		c := &models.Course{ID: i + 1, Label: "D", Subject: "D", Hours: 8}
		for h := 0; h < 8; h++ {
			c.Slots = append(c.Slots, models.TimeSlot{Day: next / models.MaxPeriod, Period: next%models.MaxPeriod + 1})
			next++
		}
		courses = append(courses, c)
	}

	roster, err := newAssignmentService(2).Assign(courses)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	for _, teacher := range roster {
		assert.LessOrEqual(t, teacher.Hours, models.MaxTeacherHours)
	}
	assert.Equal(t, 24, roster[0].Hours)
}

func TestTeacherAssignmentStallIsFatal(t *testing.T) {
	course := &models.Course{ID: 1, Label: "overload", Subject: "SP", Hours: models.MaxTeacherHours + 1}

	roster, err := newAssignmentService(3).Assign([]*models.Course{course})
	require.Error(t, err)
	assert.Empty(t, roster)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAssignmentStall.Code, appErr.Code)
	assert.Nil(t, course.Teacher)
}

func TestTeacherAssignmentCoversDefaultCatalog(t *testing.T) {
	cat := buildDefaultCatalog(t, 42)
	svc := newAssignmentService(42)

	roster, err := svc.Assign(cat.Courses)
	require.NoError(t, err)
	require.NotEmpty(t, roster)

	abbreviations := make(map[string]bool)
	for _, teacher := range roster {
		require.False(t, abbreviations[teacher.Abbreviation], "duplicate abbreviation %s", teacher.Abbreviation)
		abbreviations[teacher.Abbreviation] = true
		assert.LessOrEqual(t, teacher.Hours, models.MaxTeacherHours)

		busy := models.NewSlotSet()
		for _, c := range teacher.Courses() {
			require.False(t, busy.Overlaps(c.Slots), "%s double booked by %s", teacher.Abbreviation, c.Label)
			busy.Add(c.Slots...)
			assert.True(t, teacher.Qualified(c.Subject))
		}
	}
	for _, c := range cat.Courses {
		require.NotNil(t, c.Teacher, c.Label)
	}

	svc.AssignHomeroomTeachers(cat.Classes, roster)
	byID := make(map[int]*models.Teacher, len(roster))
	for _, teacher := range roster {
		byID[teacher.ID] = teacher
	}
	for _, class := range cat.Classes {
		teacher := byID[class.HomeroomTeacherID]
		require.NotNil(t, teacher, class.Key())
		assert.True(t, teacher.Qualified("D") || teacher.Qualified("M") || teacher.Qualified("E"))
	}
}

func TestTopSubjectBreaksTiesByCode(t *testing.T) {
	assert.Equal(t, "BI", topSubject(map[string]int{"M": 3, "BI": 3, "D": 2}))
	assert.Equal(t, "D", topSubject(map[string]int{"M": 3, "D": 4}))
}

func TestSecondSubjectFallsBackToOpenDemand(t *testing.T) {
	svc := newAssignmentService(4)
	for i := 0; i < 20; i++ {
		second := svc.secondSubject("SP", map[string]int{"SP": 3, "KU": 1, "MU": 2})
		assert.Contains(t, []string{"KU", "MU"}, second)
	}
	assert.Equal(t, "SP", svc.secondSubject("SP", map[string]int{"SP": 1}))
}

func TestDeputations(t *testing.T) {
	light := models.NewTeacher(1, "M")
	light.Hours = 10
	full := models.NewTeacher(2, "D")
	full.Hours = 24

	deps := Deputations([]*models.Teacher{light, full}, 1)
	require.Len(t, deps, 2)
	assert.Equal(t, minimumDeputation, deps[0].Target)
	assert.Equal(t, 10, deps[0].Available)
	assert.InDelta(t, 50.98, deps[0].EmploymentRate, 0.001)
	assert.Equal(t, 24, deps[1].Target)
	assert.InDelta(t, 94.12, deps[1].EmploymentRate, 0.001)
}
