package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

func kinds(report ConstraintReport) []ViolationKind {
	out := make([]ViolationKind, 0, len(report.Violations))
	for _, v := range report.Violations {
		out = append(out, v.Kind)
	}
	return out
}

func TestCheckConstraintsCleanTimetable(t *testing.T) {
	class := &models.SchoolClass{ID: 1, Grade: "5", Section: "a"}
	teacher := models.NewTeacher(1, "D", "M")
	d := &models.Course{ID: 1, Label: "5a-D", Scope: models.CourseScopeClass, Class: class, Hours: 2, Slots: slots(0, 1, 0, 2)}
	m := &models.Course{ID: 2, Label: "5a-M", Scope: models.CourseScopeClass, Class: class, Hours: 2, Slots: slots(1, 3, 1, 4)}
	teacher.Claim(d)
	teacher.Claim(m)

	report := CheckConstraints([]*models.Course{d, m}, []*models.Teacher{teacher})
	assert.True(t, report.Valid())
	assert.Empty(t, report.Violations)
	assert.Zero(t, report.HardViolations())
}

func TestCheckConstraintsFindsViolations(t *testing.T) {
	class := &models.SchoolClass{ID: 1, Grade: "5", Section: "a"}
	room := &models.Room{ID: 1, Name: "R-5a"}
	overloaded := models.NewTeacher(1, "D")
	overloaded.Abbreviation = "ABC"

	split := &models.Course{ID: 1, Label: "5a-D", Scope: models.CourseScopeClass, Class: class, Slots: slots(0, 2, 0, 3), Room: room}
	triple := &models.Course{ID: 2, Label: "5a-M", Scope: models.CourseScopeClass, Class: class, Slots: slots(0, 3, 0, 5, 0, 6), Room: room}
	bandA := &models.Course{ID: 3, Label: "5-ER", Scope: models.CourseScopeBand, Kind: models.CourseKindReligion, Grade: "5", Hours: 2, Slots: slots(2, 3, 2, 4)}
	bandB := &models.Course{ID: 4, Label: "5-KR", Scope: models.CourseScopeBand, Kind: models.CourseKindReligion, Grade: "5", Hours: 2, Slots: slots(2, 3, 2, 5)}
	overloaded.Claim(split)
	overloaded.Claim(triple)
	overloaded.Hours = models.MaxTeacherHours + 1

	report := CheckConstraints([]*models.Course{split, triple, bandA, bandB}, []*models.Teacher{overloaded})
	require.False(t, report.Valid())
	assert.Equal(t, 1, report.SplitPairs)

	found := kinds(report)
	for _, want := range []ViolationKind{
		ViolationSplitPair,
		ViolationDailyHours,
		ViolationClassCollision,
		ViolationRoomCollision,
		ViolationBandSync,
		ViolationTeacherCap,
		ViolationTeacherConflict,
	} {
		assert.Contains(t, found, want)
	}
	assert.Equal(t, len(report.Violations)-1, report.HardViolations())
}

func TestCheckConstraintsLaneSplitIsNotCounted(t *testing.T) {
	lane := &models.Course{ID: 1, Label: "Q1-D-LK1", Scope: models.CourseScopeLane, Slots: slots(4, 7, 4, 9)}

	report := CheckConstraints([]*models.Course{lane}, nil)
	assert.True(t, report.Valid())
	assert.Zero(t, report.SplitPairs)
}

func TestCheckConstraintsDefaultPipeline(t *testing.T) {
	cat := buildDefaultCatalog(t, 42)
	roster, err := newAssignmentService(42).Assign(cat.Courses)
	require.NoError(t, err)
	NewRoomAssignmentService(nil).AssignAll(cat.Courses, buildRooms(cat.Classes))

	report := CheckConstraints(cat.Courses, roster)
	assert.Zero(t, report.HardViolations(), "%v", report.Violations)
	assert.Equal(t, cat.SplitPairs, report.SplitPairs)
}
