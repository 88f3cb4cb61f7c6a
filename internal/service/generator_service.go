package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
)

const schoolYearID = 1

// GenerationResult is the output of one pipeline execution.
type GenerationResult struct {
	Timetable *models.Timetable
	Summary   models.RunSummary
	Report    ConstraintReport
}

// GeneratorService runs the whole pipeline: catalog, teachers, rooms,
// students and the lesson simulation.
type GeneratorService struct {
	reference ReferenceData
	names     NameLists
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewGeneratorService constructs the pipeline over fixed reference data.
func NewGeneratorService(reference ReferenceData, names NameLists, metrics *MetricsService, logger *zap.Logger) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorService{reference: reference, names: names, metrics: metrics, logger: logger}
}

// Generate builds a complete timetable for params. Every random draw comes
// from one rng seeded with params.Seed, so equal params give equal output.
func (s *GeneratorService) Generate(ctx context.Context, params models.RunParams) (*GenerationResult, error) {
	year, terms, err := SchoolCalendar(params.SchoolYear)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	rng := rand.New(rand.NewSource(params.Seed))
	identities := NewIdentityGenerator(rng, s.names)
	log := s.logger.With(zap.Int64("seed", params.Seed), zap.String("school_year", year.Label))

	tt := &models.Timetable{SchoolYear: year, Terms: terms, Subjects: s.reference.Subjects}

	var catalog *Catalog
	if err := s.stage(ctx, "catalog", func() error {
		builder := NewCatalogBuilder(NewSlotAllocator(rng), CatalogConfig{
			SchoolYearID:       year.ID,
			AllocationAttempts: params.AllocationAttempts,
		}, log)
		catalog, err = builder.Build(s.reference)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return nil
	}); err != nil {
		return nil, err
	}
	tt.Classes, tt.Courses = catalog.Classes, catalog.Courses

	teachers := NewTeacherAssignmentService(rng, identities, log)
	if err := s.stage(ctx, "teachers", func() error {
		roster, err := teachers.Assign(tt.Courses)
		if err != nil {
			return err
		}
		tt.Teachers = roster
		teachers.AssignHomeroomTeachers(tt.Classes, roster)
		tt.Deputations = Deputations(roster, year.ID)
		return nil
	}); err != nil {
		return nil, err
	}

	unroomed := 0
	if err := s.stage(ctx, "rooms", func() error {
		tt.Rooms = buildRooms(tt.Classes)
		unroomed = NewRoomAssignmentService(log).AssignAll(tt.Courses, tt.Rooms)
		return nil
	}); err != nil {
		return nil, err
	}

	var body *StudentBody
	if err := s.stage(ctx, "enrollment", func() error {
		body = NewEnrollmentService(rng, identities, EnrollmentConfig{
			SchoolYearID:  year.ID,
			ReferenceYear: year.Start.Year(),
		}, log).Enroll(tt.Classes, s.reference.Stages, tt.Courses)
		tt.Students, tt.Statuses, tt.Enrollments = body.Students, body.Statuses, body.Enrollments
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.stage(ctx, "simulation", func() error {
		simulator, err := NewLessonSimulatorService(rng, SimulationConfig{
			Start: params.SimulationStart,
			Days:  params.SimulationDays,
		}, log)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		tt.Schedule = BuildSchedule(tt.Courses, year.ID, year.Start)
		tt.Occurrences, tt.Attendance = simulator.Simulate(tt.Schedule, tt.Teachers, body.EnrolledIn())
		return nil
	}); err != nil {
		return nil, err
	}

	report := CheckConstraints(tt.Courses, tt.Teachers)
	for _, v := range report.Violations {
		if v.Kind == ViolationSplitPair {
			log.Debug("split pair", zap.String("course", v.Subject), zap.String("detail", v.Detail))
			continue
		}
		log.Warn("constraint violated", zap.String("kind", string(v.Kind)), zap.String("subject", v.Subject), zap.String("detail", v.Detail))
	}

	result := &GenerationResult{
		Timetable: tt,
		Report:    report,
		Summary: models.RunSummary{
			Classes:           len(tt.Classes),
			Courses:           len(tt.Courses),
			Teachers:          len(tt.Teachers),
			Rooms:             len(tt.Rooms),
			Students:          len(tt.Students),
			Enrollments:       len(tt.Enrollments),
			ScheduleEntries:   len(tt.Schedule),
			Occurrences:       len(tt.Occurrences),
			AttendanceRecords: len(tt.Attendance),
			SlotShortfall:     catalog.Shortfall,
			SplitPairs:        report.SplitPairs,
			UnroomedCourses:   unroomed,
			Violations:        report.HardViolations(),
		},
	}
	log.Info("timetable generated",
		zap.Int("courses", result.Summary.Courses),
		zap.Int("teachers", result.Summary.Teachers),
		zap.Int("students", result.Summary.Students),
		zap.Int("slot_shortfall", result.Summary.SlotShortfall),
		zap.Int("unroomed", result.Summary.UnroomedCourses),
	)
	return result, nil
}

func (s *GeneratorService) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
	}
	start := time.Now()
	err := fn()
	s.metrics.ObserveStage(name, time.Since(start))
	return err
}

// SchoolCalendar derives the school year and its two half-year terms from a
// label such as "2026/27". The year runs from August 1 to July 31.
func SchoolCalendar(label string) (models.SchoolYear, []models.Term, error) {
	startYear, err := parseSchoolYear(label)
	if err != nil {
		return models.SchoolYear{}, nil, err
	}
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	year := models.SchoolYear{
		ID:     schoolYearID,
		Label:  label,
		Start:  date(startYear, time.August, 1),
		End:    date(startYear+1, time.July, 31),
		Active: true,
	}
	terms := []models.Term{
		{ID: 1, SchoolYearID: year.ID, Code: "1. Hj", Start: year.Start, End: date(startYear+1, time.January, 31)},
		{ID: 2, SchoolYearID: year.ID, Code: "2. Hj", Start: date(startYear+1, time.February, 1), End: year.End},
	}
	return year, terms, nil
}

func parseSchoolYear(label string) (int, error) {
	parts := strings.Split(label, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("school year %q must look like 2026/27", label)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil || start < 1900 {
		return 0, fmt.Errorf("school year %q has an invalid start year", label)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end != (start+1)%100 {
		return 0, fmt.Errorf("school year %q must span consecutive years", label)
	}
	return start, nil
}
