package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mroth/weightedrand/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

const (
	examChance     = 0.02
	minLateMinutes = 5
	maxLateMinutes = 30
)

// SimulationConfig is the calendar window lessons are rolled out for.
type SimulationConfig struct {
	Start time.Time
	Days  int
}

// LessonSimulatorService rolls the weekly schedule out into dated lessons and attendance.
type LessonSimulatorService struct {
	rng        *rand.Rand
	cfg        SimulationConfig
	logger     *zap.Logger
	occurrence *weightedrand.Chooser[models.OccurrenceStatus, int]
	attendance *weightedrand.Chooser[models.AttendanceStatus, int]
}

// NewLessonSimulatorService builds the simulator with the fixed status distributions.
func NewLessonSimulatorService(rng *rand.Rand, cfg SimulationConfig, logger *zap.Logger) (*LessonSimulatorService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Days < 0 {
		return nil, fmt.Errorf("simulation days must not be negative")
	}
	occurrence, err := weightedrand.NewChooser(
		weightedrand.NewChoice(models.OccurrenceHeld, 92),
		weightedrand.NewChoice(models.OccurrenceCancelled, 4),
		weightedrand.NewChoice(models.OccurrenceSubstituted, 4),
	)
	if err != nil {
		return nil, fmt.Errorf("occurrence distribution: %w", err)
	}
	attendance, err := weightedrand.NewChooser(
		weightedrand.NewChoice(models.AttendancePresent, 92),
		weightedrand.NewChoice(models.AttendanceExcused, 4),
		weightedrand.NewChoice(models.AttendanceUnexcused, 2),
		weightedrand.NewChoice(models.AttendanceLate, 2),
	)
	if err != nil {
		return nil, fmt.Errorf("attendance distribution: %w", err)
	}
	return &LessonSimulatorService{
		rng:        rng,
		cfg:        cfg,
		logger:     logger,
		occurrence: occurrence,
		attendance: attendance,
	}, nil
}

// BuildSchedule emits one schedule entry per course slot.
func BuildSchedule(courses []*models.Course, schoolYearID int, validFrom time.Time) []models.ScheduleEntry {
	var entries []models.ScheduleEntry
	for _, c := range courses {
		var roomID *int
		if c.Room != nil {
			id := c.Room.ID
			roomID = &id
		}
		for _, slot := range c.Slots {
			entries = append(entries, models.ScheduleEntry{
				ID:           len(entries) + 1,
				CourseID:     c.ID,
				SchoolYearID: schoolYearID,
				RoomID:       roomID,
				Weekday:      slot.Weekday(),
				Period:       slot.Period,
				ValidFrom:    validFrom,
			})
		}
	}
	return entries
}

// Simulate creates one occurrence per weekday date and schedule entry of that
// weekday, and one attendance record per enrolled student when the lesson takes place.
func (s *LessonSimulatorService) Simulate(schedule []models.ScheduleEntry, roster []*models.Teacher, enrolled map[int][]int) ([]models.LessonOccurrence, []models.AttendanceRecord) {
	byWeekday := make(map[int][]models.ScheduleEntry, models.DaysPerWeek)
	for _, e := range schedule {
		byWeekday[e.Weekday] = append(byWeekday[e.Weekday], e)
	}

	var occurrences []models.LessonOccurrence
	var records []models.AttendanceRecord
	for offset := 0; offset < s.cfg.Days; offset++ {
		date := s.cfg.Start.AddDate(0, 0, offset)
		weekday := isoWeekday(date)
		if weekday > models.DaysPerWeek {
			continue
		}
		for _, entry := range byWeekday[weekday] {
			occ := models.LessonOccurrence{
				ID:              len(occurrences) + 1,
				ScheduleEntryID: entry.ID,
				Date:            date,
				Status:          s.occurrence.PickSource(s.rng),
			}
			if occ.Status == models.OccurrenceSubstituted && len(roster) > 0 {
				id := roster[s.rng.Intn(len(roster))].ID
				occ.SubstituteTeacherID = &id
			}
			occ.IsExam = s.rng.Float64() < examChance
			occurrences = append(occurrences, occ)

			if !occ.Status.TakesPlace() {
				continue
			}
			for _, studentID := range enrolled[entry.CourseID] {
				rec := models.AttendanceRecord{
					ID:           len(records) + 1,
					OccurrenceID: occ.ID,
					StudentID:    studentID,
					Status:       s.attendance.PickSource(s.rng),
				}
				if rec.Status == models.AttendanceLate {
					rec.LateMinutes = minLateMinutes + s.rng.Intn(maxLateMinutes-minLateMinutes+1)
				}
				records = append(records, rec)
			}
		}
	}

	s.logger.Sugar().Infow("lessons simulated",
		"start", s.cfg.Start.Format("2006-01-02"),
		"days", s.cfg.Days,
		"occurrences", len(occurrences),
		"attendance_records", len(records),
	)
	return occurrences, records
}

// isoWeekday maps Monday..Sunday to 1..7.
func isoWeekday(d time.Time) int {
	return (int(d.Weekday())+6)%7 + 1
}
