package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

// ViolationKind classifies a broken timetable rule.
type ViolationKind string

const (
	ViolationDailyHours      ViolationKind = "daily_hours"
	ViolationSplitPair       ViolationKind = "split_pair"
	ViolationBandSync        ViolationKind = "band_sync"
	ViolationClassCollision  ViolationKind = "class_collision"
	ViolationTeacherConflict ViolationKind = "teacher_collision"
	ViolationTeacherCap      ViolationKind = "teacher_cap"
	ViolationRoomCollision   ViolationKind = "room_collision"
)

// Violation is one finding of the constraint checker.
type Violation struct {
	Kind    ViolationKind `json:"kind" csv:"art"`
	Subject string        `json:"subject" csv:"betrifft"`
	Detail  string        `json:"detail" csv:"details"`
}

// ConstraintReport lists hard violations and soft split pairs.
type ConstraintReport struct {
	Violations []Violation `json:"violations"`
	SplitPairs int         `json:"split_pairs"`
}

// Valid reports whether no hard rule is broken. Split pairs are soft.
func (r ConstraintReport) Valid() bool {
	for _, v := range r.Violations {
		if v.Kind != ViolationSplitPair {
			return false
		}
	}
	return true
}

// HardViolations counts findings other than split pairs.
func (r ConstraintReport) HardViolations() int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind != ViolationSplitPair {
			n++
		}
	}
	return n
}

// CheckConstraints audits a finished timetable.
func CheckConstraints(courses []*models.Course, teachers []*models.Teacher) ConstraintReport {
	var report ConstraintReport
	add := func(kind ViolationKind, subject, format string, args ...interface{}) {
		report.Violations = append(report.Violations, Violation{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	classSlots := make(map[int]map[models.TimeSlot]*models.Course)
	bands := make(map[string][]*models.Course)
	roomSlots := make(map[int]map[models.TimeSlot]*models.Course)

	for _, c := range courses {
		for day := 0; day < models.DaysPerWeek; day++ {
			periods := c.SlotsOnDay(day)
			switch {
			case len(periods) > 2:
				add(ViolationDailyHours, c.Label, "%d hours on day %d", len(periods), day)
			case len(periods) == 2 && c.Scope == models.CourseScopeClass && !models.IsBlockPair(periods[0], periods[1]):
				report.SplitPairs++
				add(ViolationSplitPair, c.Label, "periods %d and %d on day %d", periods[0], periods[1], day)
			}
		}

		if c.ClassBound() {
			taken := classSlots[c.Class.ID]
			if taken == nil {
				taken = make(map[models.TimeSlot]*models.Course)
				classSlots[c.Class.ID] = taken
			}
			for _, s := range c.Slots {
				if other, ok := taken[s]; ok {
					add(ViolationClassCollision, c.Label, "shares %s with %s", s, other.Label)
					continue
				}
				taken[s] = c
			}
		}
		if c.Scope == models.CourseScopeBand {
			key := fmt.Sprintf("%s/%s/%d", c.Grade, c.Kind, c.Hours)
			bands[key] = append(bands[key], c)
		}

		if c.Room != nil {
			ledger := roomSlots[c.Room.ID]
			if ledger == nil {
				ledger = make(map[models.TimeSlot]*models.Course)
				roomSlots[c.Room.ID] = ledger
			}
			for _, s := range c.Slots {
				if other, ok := ledger[s]; ok {
					add(ViolationRoomCollision, c.Room.Name, "%s and %s at %s", other.Label, c.Label, s)
					continue
				}
				ledger[s] = c
			}
		}
	}

	keys := make([]string, 0, len(bands))
	for k := range bands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		group := bands[k]
		ref := models.NewSlotSet(group[0].Slots...)
		for _, c := range group[1:] {
			if len(c.Slots) != len(ref) || !ref.Contains(c.Slots) {
				add(ViolationBandSync, c.Label, "slots differ from %s", group[0].Label)
			}
		}
	}

	for _, t := range teachers {
		if t.Hours > models.MaxTeacherHours {
			add(ViolationTeacherCap, t.Abbreviation, "%d hours assigned", t.Hours)
		}
		seen := make(map[models.TimeSlot]*models.Course)
		for _, c := range t.Courses() {
			for _, s := range c.Slots {
				if other, ok := seen[s]; ok {
					add(ViolationTeacherConflict, t.Abbreviation, "%s and %s at %s", other.Label, c.Label, s)
					continue
				}
				seen[s] = c
			}
		}
	}
	return report
}
