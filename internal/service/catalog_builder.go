package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

// CatalogConfig tunes course catalog construction.
type CatalogConfig struct {
	SchoolYearID       int
	AllocationAttempts int
}

// Catalog is the frozen output of the catalog builder.
type Catalog struct {
	Classes    []*models.SchoolClass
	Courses    []*models.Course
	Shortfall  int
	SplitPairs int
}

// CatalogBuilder creates class, band and lane courses with their slots.
type CatalogBuilder struct {
	allocator *SlotAllocator
	cfg       CatalogConfig
	logger    *zap.Logger
}

// NewCatalogBuilder constructs a CatalogBuilder.
func NewCatalogBuilder(allocator *SlotAllocator, cfg CatalogConfig, logger *zap.Logger) *CatalogBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AllocationAttempts <= 0 {
		cfg.AllocationAttempts = 1
	}
	if cfg.SchoolYearID <= 0 {
		cfg.SchoolYearID = 1
	}
	return &CatalogBuilder{allocator: allocator, cfg: cfg, logger: logger}
}

// Build creates the classes and the full course catalog for ref.
func (b *CatalogBuilder) Build(ref ReferenceData) (*Catalog, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("reference data: %w", err)
	}

	cat := &Catalog{}
	for _, g := range ref.Grades {
		for _, s := range g.Sections {
			cat.Classes = append(cat.Classes, &models.SchoolClass{
				ID:           len(cat.Classes) + 1,
				SchoolYearID: b.cfg.SchoolYearID,
				Grade:        g.Grade,
				Section:      s.Section,
				Headcount:    s.Headcount,
			})
		}
	}

	for _, g := range ref.Grades {
		level := models.GradeLevel(g.Grade)
		for _, band := range gradeBands {
			if level < band.minGrade {
				continue
			}
			for _, subject := range band.subjects {
				b.addCourse(cat, &models.Course{
					Label:   band.label(g.Grade, subject),
					Subject: subject,
					Hours:   band.hours,
					Scope:   models.CourseScopeBand,
					Kind:    band.kind,
					Grade:   g.Grade,
					Group:   g.Grade + "-" + band.name,
					Slots:   copySlots(band.slots),
				})
			}
		}
		for _, class := range cat.Classes {
			if class.Grade != g.Grade {
				continue
			}
			b.buildClassCourses(cat, class, classSubjects(level))
		}
	}

	for _, stage := range ref.Stages {
		b.buildStageCourses(cat, stage)
	}

	b.logger.Sugar().Infow("course catalog built",
		"classes", len(cat.Classes),
		"courses", len(cat.Courses),
		"slot_shortfall", cat.Shortfall,
		"split_pairs", cat.SplitPairs,
	)
	return cat, nil
}

// ClassDemand returns the class subjects of a grade sorted largest first
// together with the class's total weekly hours including band hours.
func ClassDemand(level int, subjects []SubjectHours) ([]SubjectHours, int) {
	sorted := make([]SubjectHours, len(subjects))
	copy(sorted, subjects)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hours > sorted[j].Hours })

	total := 0
	for _, s := range sorted {
		total += s.Hours
	}
	for _, band := range gradeBands {
		if level >= band.minGrade {
			total += band.hours
		}
	}
	return sorted, total
}

// ClassPool builds the free-slot pool of a class: the 5x6 base grid extended to
// total hours, minus the band slots of the grade. It also returns how many
// extension slots were synthesized.
func ClassPool(level, total int) (*SlotPool, int) {
	pool := NewSlotPool()
	for day := 0; day < models.DaysPerWeek; day++ {
		for period := 1; period <= basePeriodsPerDay; period++ {
			pool.Add(models.TimeSlot{Day: day, Period: period})
		}
	}

	extensions := 0
	missing := total - models.DaysPerWeek*basePeriodsPerDay
	for day := 0; missing > 0; day = (day + 1) % models.DaysPerWeek {
		if missing >= 2 {
			pool.Add(models.TimeSlot{Day: day, Period: 8}, models.TimeSlot{Day: day, Period: 9})
			missing -= 2
			extensions += 2
			continue
		}
		pool.Add(models.TimeSlot{Day: day, Period: 7})
		missing--
		extensions++
	}

	for _, band := range gradeBands {
		if level >= band.minGrade {
			pool.Remove(band.slots...)
		}
	}
	return pool, extensions
}

type classAttempt struct {
	slots      [][]models.TimeSlot
	shortfall  int
	splitPairs int
}

func (a classAttempt) better(other *classAttempt) bool {
	if other == nil {
		return true
	}
	if a.shortfall != other.shortfall {
		return a.shortfall < other.shortfall
	}
	return a.splitPairs < other.splitPairs
}

func (b *CatalogBuilder) buildClassCourses(cat *Catalog, class *models.SchoolClass, table []SubjectHours) {
	level := class.GradeLevel()
	subjects, total := ClassDemand(level, table)
	pool, extensions := ClassPool(level, total)

	var best *classAttempt
	attempts := 0
	for attempts < b.cfg.AllocationAttempts {
		attempts++
		trial := pool.Clone()
		current := classAttempt{slots: make([][]models.TimeSlot, len(subjects))}
		for i, s := range subjects {
			picked := b.allocator.Allocate(trial, s.Hours)
			current.slots[i] = picked
			current.shortfall += s.Hours - len(picked)
			current.splitPairs += splitPairs(picked)
		}
		if current.better(best) {
			c := current
			best = &c
		}
		if best.shortfall == 0 && best.splitPairs == 0 {
			break
		}
	}

	for i, s := range subjects {
		course := &models.Course{
			Label:   fmt.Sprintf("%s-%s", class.Key(), s.Subject),
			Subject: s.Subject,
			Hours:   s.Hours,
			Scope:   models.CourseScopeClass,
			Kind:    models.CourseKindClass,
			Grade:   class.Grade,
			Class:   class,
			Slots:   best.slots[i],
		}
		b.addCourse(cat, course)
		if missing := course.Shortfall(); missing > 0 {
			b.logger.Sugar().Warnw("course under-allocated", "class", class.Key(), "subject", s.Subject, "shortfall", missing)
		}
	}
	cat.Shortfall += best.shortfall
	cat.SplitPairs += best.splitPairs

	b.logger.Sugar().Debugw("class allocated",
		"class", class.Key(),
		"demand", total,
		"extension_slots", extensions,
		"attempts", attempts,
		"split_pairs", best.splitPairs,
	)
}

func (b *CatalogBuilder) buildStageCourses(cat *Catalog, stage models.Stage) {
	basicPerCore := ceilDiv(stage.Headcount, 22)
	advancedCount := 0
	if stage.Name != "EF" {
		advancedCount = ceilDiv(stage.Headcount, 15)
	}

	basicLane := 0
	advancedLane := basicLaneCount
	for _, subject := range upperStageSubjects {
		count := basicPerCore
		if !coreSubjects[subject] {
			count = basicPerCore / 2
			if count < 1 {
				count = 1
			}
		}
		for i := 1; i <= count; i++ {
			b.addCourse(cat, &models.Course{
				Label:   fmt.Sprintf("%s-%s-GK%d", stage.Name, subject, i),
				Subject: subject,
				Hours:   basicCourseHours,
				Scope:   models.CourseScopeLane,
				Kind:    models.CourseKindBasic,
				Grade:   stage.Name,
				Group:   laneGroup(stage.Name, basicLane),
				Slots:   copySlots(stageLanes[basicLane]),
			})
			basicLane = (basicLane + 1) % basicLaneCount
		}
		if !advancedSubjects[subject] {
			continue
		}
		for i := 1; i <= advancedCount; i++ {
			b.addCourse(cat, &models.Course{
				Label:   fmt.Sprintf("%s-%s-LK%d", stage.Name, subject, i),
				Subject: subject,
				Hours:   advancedHours,
				Scope:   models.CourseScopeLane,
				Kind:    models.CourseKindAdvanced,
				Grade:   stage.Name,
				Group:   laneGroup(stage.Name, advancedLane),
				Slots:   copySlots(stageLanes[advancedLane]),
			})
			if advancedLane == basicLaneCount {
				advancedLane = basicLaneCount + 1
			} else {
				advancedLane = basicLaneCount
			}
		}
	}
}

func (b *CatalogBuilder) addCourse(cat *Catalog, c *models.Course) {
	c.ID = len(cat.Courses) + 1
	cat.Courses = append(cat.Courses, c)
}

func laneGroup(stage string, lane int) string {
	return fmt.Sprintf("%s-S%d", stage, lane+1)
}

func copySlots(slots []models.TimeSlot) []models.TimeSlot {
	out := make([]models.TimeSlot, len(slots))
	copy(out, slots)
	return out
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
