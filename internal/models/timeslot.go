package models

import (
	"fmt"
	"sort"
)

const (
	// DaysPerWeek is the number of teaching days (Monday..Friday).
	DaysPerWeek = 5
	// MaxPeriod is the last lesson period of a day.
	MaxPeriod = 9
)

// BlockStarts lists the first period of every canonical double lesson.
var BlockStarts = []int{1, 3, 5, 8}

var weekdayNames = []string{"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag"}

// TimeSlot addresses one lesson period in the weekly grid. Day is zero based.
type TimeSlot struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// Valid reports whether the slot lies inside the weekly grid.
func (s TimeSlot) Valid() bool {
	return s.Day >= 0 && s.Day < DaysPerWeek && s.Period >= 1 && s.Period <= MaxPeriod
}

// Weekday returns the one-based weekday id used by persisted rows.
func (s TimeSlot) Weekday() int {
	return s.Day + 1
}

// Less orders slots by day, then period.
func (s TimeSlot) Less(other TimeSlot) bool {
	if s.Day == other.Day {
		return s.Period < other.Period
	}
	return s.Day < other.Day
}

func (s TimeSlot) String() string {
	if s.Day >= 0 && s.Day < len(weekdayNames) {
		return fmt.Sprintf("%s/%d", weekdayNames[s.Day][:2], s.Period)
	}
	return fmt.Sprintf("%d/%d", s.Day, s.Period)
}

// WeekdayNames returns the German weekday labels, Monday first.
func WeekdayNames() []string {
	out := make([]string, len(weekdayNames))
	copy(out, weekdayNames)
	return out
}

// SortSlots orders slots in place by day and period.
func SortSlots(slots []TimeSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
}

// IsBlockPair reports whether two periods of the same day form a canonical double lesson.
func IsBlockPair(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	for _, start := range BlockStarts {
		if a == start && b == start+1 {
			return true
		}
	}
	return false
}

// BlockPartner returns the other period of the canonical block containing period.
func BlockPartner(period int) (int, bool) {
	for _, start := range BlockStarts {
		switch period {
		case start:
			return start + 1, true
		case start + 1:
			return start, true
		}
	}
	return 0, false
}

// SlotSet is an unordered set of slots.
type SlotSet map[TimeSlot]struct{}

// NewSlotSet builds a set from the given slots.
func NewSlotSet(slots ...TimeSlot) SlotSet {
	set := make(SlotSet, len(slots))
	for _, s := range slots {
		set[s] = struct{}{}
	}
	return set
}

// Add inserts all slots.
func (s SlotSet) Add(slots ...TimeSlot) {
	for _, slot := range slots {
		s[slot] = struct{}{}
	}
}

// Has reports membership.
func (s SlotSet) Has(slot TimeSlot) bool {
	_, ok := s[slot]
	return ok
}

// Overlaps reports whether any of slots is already in the set.
func (s SlotSet) Overlaps(slots []TimeSlot) bool {
	for _, slot := range slots {
		if s.Has(slot) {
			return true
		}
	}
	return false
}

// Contains reports whether every one of slots is in the set.
func (s SlotSet) Contains(slots []TimeSlot) bool {
	for _, slot := range slots {
		if !s.Has(slot) {
			return false
		}
	}
	return true
}

// Sorted returns the members ordered by day and period.
func (s SlotSet) Sorted() []TimeSlot {
	out := make([]TimeSlot, 0, len(s))
	for slot := range s {
		out = append(out, slot)
	}
	SortSlots(out)
	return out
}
