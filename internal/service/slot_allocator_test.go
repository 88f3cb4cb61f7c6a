package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

func fullGrid(periods int) *SlotPool {
	pool := NewSlotPool()
	for day := 0; day < models.DaysPerWeek; day++ {
		for p := 1; p <= periods; p++ {
			pool.Add(models.TimeSlot{Day: day, Period: p})
		}
	}
	return pool
}

func assertDailyShape(t *testing.T, slots []models.TimeSlot) {
	t.Helper()
	perDay := make(map[int][]int)
	seen := models.NewSlotSet()
	for _, s := range slots {
		require.False(t, seen.Has(s), "slot %s picked twice", s)
		seen.Add(s)
		perDay[s.Day] = append(perDay[s.Day], s.Period)
	}
	for day, periods := range perDay {
		require.LessOrEqual(t, len(periods), 2, "day %d", day)
	}
}

func TestSlotAllocatorPrefersBlocksOnDistinctDays(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		pool := fullGrid(6)
		picked := NewSlotAllocator(rand.New(rand.NewSource(seed))).Allocate(pool, 4)

		require.Len(t, picked, 4)
		assertDailyShape(t, picked)
		perDay := make(map[int][]int)
		for _, s := range picked {
			perDay[s.Day] = append(perDay[s.Day], s.Period)
		}
		require.Len(t, perDay, 2)
		for _, periods := range perDay {
			assert.True(t, models.IsBlockPair(periods[0], periods[1]), "seed %d periods %v", seed, periods)
		}
		assert.Equal(t, 26, pool.Len())
		for _, s := range picked {
			assert.False(t, pool.Has(s))
		}
	}
}

func TestSlotAllocatorOddHoursUseHalfBlockOnFreshDay(t *testing.T) {
	pool := fullGrid(6)
	picked := NewSlotAllocator(rand.New(rand.NewSource(7))).Allocate(pool, 5)

	require.Len(t, picked, 5)
	assertDailyShape(t, picked)
	assert.Zero(t, splitPairs(picked))
}

func TestSlotAllocatorPoolExhaustion(t *testing.T) {
	pool := NewSlotPool(
		models.TimeSlot{Day: 0, Period: 1},
		models.TimeSlot{Day: 1, Period: 3},
		models.TimeSlot{Day: 2, Period: 5},
	)
	picked := NewSlotAllocator(rand.New(rand.NewSource(1))).Allocate(pool, 5)

	assert.Len(t, picked, 3)
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, []models.TimeSlot{{Day: 0, Period: 1}, {Day: 1, Period: 3}, {Day: 2, Period: 5}}, picked)
}

func TestSlotAllocatorNeverPlacesThirdHourOnADay(t *testing.T) {
	pool := NewSlotPool()
	for p := 1; p <= 6; p++ {
		pool.Add(models.TimeSlot{Day: 0, Period: p})
	}
	picked := NewSlotAllocator(rand.New(rand.NewSource(3))).Allocate(pool, 4)

	require.Len(t, picked, 2)
	assert.True(t, models.IsBlockPair(picked[0].Period, picked[1].Period))
	assert.Equal(t, 4, pool.Len())
}

func TestSlotAllocatorFallbackAcceptsSplitPair(t *testing.T) {
	pool := NewSlotPool(
		models.TimeSlot{Day: 0, Period: 2},
		models.TimeSlot{Day: 0, Period: 3},
		models.TimeSlot{Day: 1, Period: 1},
	)
	picked := NewSlotAllocator(rand.New(rand.NewSource(11))).Allocate(pool, 3)

	require.Len(t, picked, 3)
	assertDailyShape(t, picked)
	assert.Equal(t, 1, splitPairs(picked))
}

func TestSlotAllocatorTakesWholeBlockBeforeSingles(t *testing.T) {
	pool := NewSlotPool(
		models.TimeSlot{Day: 3, Period: 1},
		models.TimeSlot{Day: 3, Period: 2},
		models.TimeSlot{Day: 3, Period: 6},
	)
	picked := NewSlotAllocator(rand.New(rand.NewSource(5))).Allocate(pool, 2)

	require.Len(t, picked, 2)
	assert.Equal(t, []models.TimeSlot{{Day: 3, Period: 1}, {Day: 3, Period: 2}}, picked)
}

func TestSlotAllocatorEmptyInputs(t *testing.T) {
	alloc := NewSlotAllocator(rand.New(rand.NewSource(1)))
	assert.Nil(t, alloc.Allocate(NewSlotPool(), 3))
	assert.Nil(t, alloc.Allocate(fullGrid(6), 0))
}

func TestSlotPoolCloneIsIndependent(t *testing.T) {
	pool := NewSlotPool(models.TimeSlot{Day: 0, Period: 1}, models.TimeSlot{Day: 0, Period: 2})
	clone := pool.Clone()
	clone.Remove(models.TimeSlot{Day: 0, Period: 1})

	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, 1, clone.Len())
}
