package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
)

func testRunParams(seed int64) models.RunParams {
	return models.RunParams{
		Seed:               seed,
		SchoolYear:         "2026/27",
		SimulationStart:    time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC),
		SimulationDays:     7,
		AllocationAttempts: 4,
	}
}

func generateForTest(t *testing.T, seed int64) *GenerationResult {
	t.Helper()
	svc := NewGeneratorService(DefaultReferenceData(), DefaultNameLists(), NewMetricsService(), nil)
	result, err := svc.Generate(context.Background(), testRunParams(seed))
	require.NoError(t, err)
	return result
}

func TestGeneratorServiceGenerate(t *testing.T) {
	result := generateForTest(t, 42)
	tt := result.Timetable
	summary := result.Summary

	assert.Equal(t, 23, summary.Classes)
	assert.Equal(t, len(tt.Courses), summary.Courses)
	assert.Equal(t, 23+15+20, summary.Rooms)
	assert.Equal(t, len(tt.Students), summary.Students)
	assert.Equal(t, len(tt.Statuses), len(tt.Students))
	assert.Len(t, tt.Deputations, len(tt.Teachers))
	assert.Zero(t, summary.Violations)
	assert.LessOrEqual(t, summary.UnroomedCourses, summary.Courses)

	slotCount := 0
	for _, c := range tt.Courses {
		slotCount += len(c.Slots)
		require.NotNil(t, c.Teacher, c.Label)
	}
	assert.Equal(t, slotCount, summary.ScheduleEntries)
	assert.NotEmpty(t, tt.Occurrences)
	assert.NotEmpty(t, tt.Attendance)
	for _, class := range tt.Classes {
		assert.NotZero(t, class.HomeroomTeacherID)
	}
}

func TestGeneratorServiceIsDeterministic(t *testing.T) {
	first := generateForTest(t, 7)
	second := generateForTest(t, 7)

	assert.Equal(t, first.Summary, second.Summary)
	require.Len(t, second.Timetable.Teachers, len(first.Timetable.Teachers))
	for i, teacher := range first.Timetable.Teachers {
		other := second.Timetable.Teachers[i]
		assert.Equal(t, teacher.Abbreviation, other.Abbreviation)
		assert.Equal(t, teacher.Subjects(), other.Subjects())
		assert.Equal(t, teacher.Hours, other.Hours)
	}
	assert.Equal(t, first.Timetable.Schedule, second.Timetable.Schedule)
	assert.Equal(t, first.Timetable.Occurrences, second.Timetable.Occurrences)
	assert.Equal(t, first.Timetable.Enrollments, second.Timetable.Enrollments)
}

func TestGeneratorServiceRejectsBadSchoolYear(t *testing.T) {
	svc := NewGeneratorService(DefaultReferenceData(), DefaultNameLists(), nil, nil)
	params := testRunParams(1)
	params.SchoolYear = "2026/28"

	_, err := svc.Generate(context.Background(), params)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGeneratorServiceHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGeneratorService(DefaultReferenceData(), DefaultNameLists(), nil, nil).Generate(ctx, testRunParams(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSchoolCalendar(t *testing.T) {
	year, terms, err := SchoolCalendar("2026/27")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), year.Start)
	assert.Equal(t, time.Date(2027, time.July, 31, 0, 0, 0, 0, time.UTC), year.End)
	require.Len(t, terms, 2)
	assert.Equal(t, time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC), terms[0].End)
	assert.Equal(t, time.Date(2027, time.February, 1, 0, 0, 0, 0, time.UTC), terms[1].Start)

	for _, bad := range []string{"", "2026", "26/27", "2026/2x", "2099/01"} {
		_, _, err := SchoolCalendar(bad)
		assert.Error(t, err, bad)
	}
	_, _, err = SchoolCalendar("2099/00")
	assert.NoError(t, err)
}
