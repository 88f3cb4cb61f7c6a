package service

import (
	"math/rand"
	"sort"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

// SlotPool is the set of free cells shared by the courses of one class.
type SlotPool struct {
	free models.SlotSet
}

// NewSlotPool builds a pool from the given slots.
func NewSlotPool(slots ...models.TimeSlot) *SlotPool {
	return &SlotPool{free: models.NewSlotSet(slots...)}
}

// Len returns the number of free slots.
func (p *SlotPool) Len() int {
	return len(p.free)
}

// Has reports whether slot is still free.
func (p *SlotPool) Has(slot models.TimeSlot) bool {
	return p.free.Has(slot)
}

// Add returns slots to the pool.
func (p *SlotPool) Add(slots ...models.TimeSlot) {
	p.free.Add(slots...)
}

// Remove takes slots out of the pool.
func (p *SlotPool) Remove(slots ...models.TimeSlot) {
	for _, s := range slots {
		delete(p.free, s)
	}
}

// Slots returns the free slots ordered by day and period.
func (p *SlotPool) Slots() []models.TimeSlot {
	return p.free.Sorted()
}

// Clone returns an independent copy of the pool.
func (p *SlotPool) Clone() *SlotPool {
	return NewSlotPool(p.Slots()...)
}

type slotBlock struct {
	day   int
	start int
}

func (b slotBlock) slots() []models.TimeSlot {
	return []models.TimeSlot{{Day: b.day, Period: b.start}, {Day: b.day, Period: b.start + 1}}
}

// SlotAllocator picks course hours out of a class pool, preferring double
// lessons on distinct days. A course never gets more than two hours a day.
type SlotAllocator struct {
	rng *rand.Rand
}

// NewSlotAllocator builds an allocator drawing from rng.
func NewSlotAllocator(rng *rand.Rand) *SlotAllocator {
	return &SlotAllocator{rng: rng}
}

// Allocate selects up to target slots from pool and removes them from it.
// The result is shorter than target only when the pool cannot supply more
// hours without a third hour on one day.
func (a *SlotAllocator) Allocate(pool *SlotPool, target int) []models.TimeSlot {
	if target <= 0 || pool.Len() == 0 {
		return nil
	}

	byDay := make(map[int][]int, models.DaysPerWeek)
	for _, s := range pool.Slots() {
		byDay[s.Day] = append(byDay[s.Day], s.Period)
	}
	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)
	a.rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })

	var blocks []slotBlock
	var singles []models.TimeSlot
	for _, day := range days {
		free := make(map[int]bool, len(byDay[day]))
		for _, p := range byDay[day] {
			free[p] = true
		}
		inBlock := make(map[int]bool)
		for _, start := range models.BlockStarts {
			if free[start] && free[start+1] {
				blocks = append(blocks, slotBlock{day: day, start: start})
				inBlock[start], inBlock[start+1] = true, true
			}
		}
		for _, p := range byDay[day] {
			if !inBlock[p] {
				singles = append(singles, models.TimeSlot{Day: day, Period: p})
			}
		}
	}
	a.rng.Shuffle(len(blocks), func(i, j int) { blocks[i], blocks[j] = blocks[j], blocks[i] })
	a.rng.Shuffle(len(singles), func(i, j int) { singles[i], singles[j] = singles[j], singles[i] })

	st := &allocation{remaining: target, perDay: make(map[int][]int)}

	// Phase A: whole blocks on untouched days; the day is then closed.
	for st.remaining >= 2 {
		idx := indexOfBlock(blocks, func(b slotBlock) bool { return st.hours(b.day) == 0 })
		if idx < 0 {
			break
		}
		b := blocks[idx]
		st.take(b.slots()...)
		blocks = dropDayBlocks(blocks, b.day)
		singles = dropDaySingles(singles, b.day)
	}

	// Phase B: singles on untouched days.
	for st.remaining > 0 {
		idx := indexOfSingle(singles, func(s models.TimeSlot) bool { return st.hours(s.Day) == 0 })
		if idx < 0 {
			break
		}
		st.take(singles[idx])
		singles = removeSingle(singles, idx)
	}

	// Phase C: squeeze the rest in without a third hour on any day.
	for st.remaining > 0 {
		if idx := indexOfBlock(blocks, func(b slotBlock) bool { return st.hours(b.day) == 0 }); idx >= 0 {
			b := blocks[idx]
			first := b.slots()[a.rng.Intn(2)]
			st.take(first)
			blocks = removeBlock(blocks, idx)
			singles = append(singles, b.slots()...)
			singles = removeSlot(singles, first)
			continue
		}
		if idx := indexOfSingle(singles, st.completesPair); idx >= 0 {
			st.take(singles[idx])
			singles = removeSingle(singles, idx)
			continue
		}
		if idx := indexOfBlock(blocks, func(b slotBlock) bool {
			return st.completesPair(b.slots()[0]) || st.completesPair(b.slots()[1])
		}); idx >= 0 {
			b := blocks[idx]
			pick := b.slots()[0]
			if !st.completesPair(pick) {
				pick = b.slots()[1]
			}
			st.take(pick)
			blocks = removeBlock(blocks, idx)
			singles = append(singles, b.slots()...)
			singles = removeSlot(singles, pick)
			continue
		}
		if idx := indexOfSingle(singles, func(s models.TimeSlot) bool { return st.hours(s.Day) < 2 }); idx >= 0 {
			st.take(singles[idx])
			singles = removeSingle(singles, idx)
			continue
		}
		if idx := indexOfBlock(blocks, func(b slotBlock) bool { return st.hours(b.day) < 2 }); idx >= 0 {
			b := blocks[idx]
			st.take(b.slots()[0])
			blocks = removeBlock(blocks, idx)
			continue
		}
		break
	}

	pool.Remove(st.picked...)
	models.SortSlots(st.picked)
	return st.picked
}

type allocation struct {
	picked    []models.TimeSlot
	remaining int
	perDay    map[int][]int
}

func (st *allocation) hours(day int) int {
	return len(st.perDay[day])
}

func (st *allocation) take(slots ...models.TimeSlot) {
	for _, s := range slots {
		st.picked = append(st.picked, s)
		st.perDay[s.Day] = append(st.perDay[s.Day], s.Period)
		st.remaining--
	}
}

// completesPair reports whether s is the block partner of the course's lone hour on that day.
func (st *allocation) completesPair(s models.TimeSlot) bool {
	periods := st.perDay[s.Day]
	if len(periods) != 1 {
		return false
	}
	partner, ok := models.BlockPartner(periods[0])
	return ok && partner == s.Period
}

func indexOfBlock(blocks []slotBlock, match func(slotBlock) bool) int {
	for i, b := range blocks {
		if match(b) {
			return i
		}
	}
	return -1
}

func indexOfSingle(singles []models.TimeSlot, match func(models.TimeSlot) bool) int {
	for i, s := range singles {
		if match(s) {
			return i
		}
	}
	return -1
}

func removeBlock(blocks []slotBlock, idx int) []slotBlock {
	return append(blocks[:idx:idx], blocks[idx+1:]...)
}

func removeSingle(singles []models.TimeSlot, idx int) []models.TimeSlot {
	return append(singles[:idx:idx], singles[idx+1:]...)
}

func removeSlot(singles []models.TimeSlot, slot models.TimeSlot) []models.TimeSlot {
	out := singles[:0:0]
	for _, s := range singles {
		if s != slot {
			out = append(out, s)
		}
	}
	return out
}

func dropDayBlocks(blocks []slotBlock, day int) []slotBlock {
	out := blocks[:0:0]
	for _, b := range blocks {
		if b.day != day {
			out = append(out, b)
		}
	}
	return out
}

func dropDaySingles(singles []models.TimeSlot, day int) []models.TimeSlot {
	out := singles[:0:0]
	for _, s := range singles {
		if s.Day != day {
			out = append(out, s)
		}
	}
	return out
}

// splitPairs counts days on which the slots hold two periods that are not a canonical block.
func splitPairs(slots []models.TimeSlot) int {
	perDay := make(map[int][]int)
	for _, s := range slots {
		perDay[s.Day] = append(perDay[s.Day], s.Period)
	}
	splits := 0
	for _, periods := range perDay {
		if len(periods) == 2 && !models.IsBlockPair(periods[0], periods[1]) {
			splits++
		}
	}
	return splits
}
