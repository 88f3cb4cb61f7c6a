package service

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

func buildDefaultCatalog(t *testing.T, seed int64) *Catalog {
	t.Helper()
	builder := NewCatalogBuilder(NewSlotAllocator(rand.New(rand.NewSource(seed))), CatalogConfig{AllocationAttempts: 8}, nil)
	cat, err := builder.Build(DefaultReferenceData())
	require.NoError(t, err)
	return cat
}

func TestClassPoolExtendsGridForThirtyTwoHours(t *testing.T) {
	table := append(classSubjects(5), SubjectHours{Subject: "PA", Hours: 2})
	subjects, total := ClassDemand(5, table)
	require.Equal(t, 32, total)
	assert.Equal(t, 4, subjects[0].Hours)
	assert.Equal(t, 1, subjects[len(subjects)-1].Hours)

	pool, extensions := ClassPool(5, total)
	assert.Equal(t, 2, extensions)
	assert.True(t, pool.Has(models.TimeSlot{Day: 0, Period: 8}))
	assert.True(t, pool.Has(models.TimeSlot{Day: 0, Period: 9}))
	for _, s := range religionBand {
		assert.False(t, pool.Has(s), "band slot %s must stay reserved", s)
	}
	assert.Equal(t, 30, pool.Len())

	alloc := NewSlotAllocator(rand.New(rand.NewSource(1)))
	allocated := 0
	for _, s := range subjects {
		picked := alloc.Allocate(pool, s.Hours)
		assertDailyShape(t, picked)
		assert.Len(t, picked, s.Hours, "subject %s", s.Subject)
		allocated += len(picked)
	}
	assert.Equal(t, 32, allocated+2)
	assert.Zero(t, pool.Len())
}

func TestClassPoolOddExtensionUsesSeventhPeriod(t *testing.T) {
	pool, extensions := ClassPool(5, 33)
	assert.Equal(t, 3, extensions)
	assert.True(t, pool.Has(models.TimeSlot{Day: 1, Period: 7}))
}

func TestCatalogBuilderClassCourses(t *testing.T) {
	cat := buildDefaultCatalog(t, 42)
	require.Len(t, cat.Classes, 23)

	shortfall := 0
	byClass := make(map[int]models.SlotSet)
	for _, c := range cat.Courses {
		if !c.ClassBound() {
			continue
		}
		assert.Equal(t, c.Hours, len(c.Slots)+c.Shortfall(), c.Label)
		shortfall += c.Shortfall()
		taken := byClass[c.Class.ID]
		if taken == nil {
			taken = models.NewSlotSet()
			byClass[c.Class.ID] = taken
		}
		require.False(t, taken.Overlaps(c.Slots), "%s collides inside its class", c.Label)
		taken.Add(c.Slots...)
		assertDailyShape(t, c.Slots)
	}
	assert.Equal(t, cat.Shortfall, shortfall)
}

func TestCatalogBuilderBandsShareSlots(t *testing.T) {
	cat := buildDefaultCatalog(t, 42)

	groups := make(map[string][]*models.Course)
	for _, c := range cat.Courses {
		if c.Scope == models.CourseScopeBand {
			groups[c.Group] = append(groups[c.Group], c)
		}
	}
	require.Contains(t, groups, "5-Reli")
	assert.NotContains(t, groups, "5-WP")
	require.Contains(t, groups, "9-KuMu")
	for name, group := range groups {
		ref := models.NewSlotSet(group[0].Slots...)
		for _, c := range group[1:] {
			assert.True(t, ref.Contains(c.Slots) && len(ref) == len(c.Slots), "%s differs in %s", c.Label, name)
		}
	}
}

func TestCatalogBuilderStageCourses(t *testing.T) {
	cat := buildDefaultCatalog(t, 42)

	counts := make(map[string]int)
	for _, c := range cat.Courses {
		if c.Scope != models.CourseScopeLane {
			continue
		}
		counts[c.Grade+"/"+string(c.Kind)]++
		require.True(t, strings.HasPrefix(c.Group, c.Grade+"-S"), c.Group)
		if c.Kind == models.CourseKindAdvanced {
			assert.Len(t, c.Slots, advancedHours)
		} else {
			assert.Len(t, c.Slots, basicCourseHours)
		}
	}
	assert.Equal(t, 48, counts["EF/GK"])
	assert.Zero(t, counts["EF/LK"])
	assert.Equal(t, 36, counts["Q1/GK"])
	assert.Equal(t, 40, counts["Q1/LK"])
}

func TestCatalogBuilderRejectsUnknownSubjects(t *testing.T) {
	ref := DefaultReferenceData()
	ref.Subjects = ref.Subjects[:3]

	_, err := NewCatalogBuilder(NewSlotAllocator(rand.New(rand.NewSource(1))), CatalogConfig{}, nil).Build(ref)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing from catalog")
}

func TestCatalogBuilderIsDeterministic(t *testing.T) {
	first := buildDefaultCatalog(t, 9)
	second := buildDefaultCatalog(t, 9)

	require.Len(t, second.Courses, len(first.Courses))
	for i := range first.Courses {
		assert.Equal(t, first.Courses[i].Slots, second.Courses[i].Slots, first.Courses[i].Label)
	}
}
