package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

func TestAssignRoomFallsThroughBookedRoom(t *testing.T) {
	booked := &models.Room{ID: 1, Name: "Physikraum 1", Category: models.RoomCategorySpecialist, Subject: "PH"}
	free := &models.Room{ID: 2, Name: "Kursraum 1", Category: models.RoomCategoryGeneric}
	require.True(t, booked.Book(&models.Course{Label: "7a-PH", Slots: slots(2, 3, 2, 4)}))

	course := &models.Course{Label: "8b-PH", Subject: "PH", Slots: slots(2, 3)}
	require.True(t, AssignRoom(course, []*models.Room{booked}, []*models.Room{free}))

	assert.Same(t, free, course.Room)
	assert.Equal(t, 2, booked.Booked())
	assert.Equal(t, "7a-PH", booked.Occupant(models.TimeSlot{Day: 2, Period: 3}).Label)
}

func TestAssignRoomLeavesCourseUnroomed(t *testing.T) {
	room := &models.Room{ID: 1, Name: "Kursraum 1"}
	require.True(t, room.Book(&models.Course{Label: "first", Slots: slots(0, 1, 0, 2)}))

	course := &models.Course{Label: "second", Slots: slots(0, 2, 1, 1)}
	assert.False(t, AssignRoom(course, []*models.Room{room}))
	assert.Nil(t, course.Room)
	assert.Equal(t, 2, room.Booked(), "a rejected booking must not write partial slots")
}

func TestRoomAssignmentPasses(t *testing.T) {
	class := &models.SchoolClass{ID: 1, Grade: "7", Section: "a"}
	rooms := buildRooms([]*models.SchoolClass{class})

	physics := &models.Course{ID: 1, Label: "7a-PH", Subject: "PH", Scope: models.CourseScopeClass, Class: class, Slots: slots(0, 1, 0, 2)}
	german := &models.Course{ID: 2, Label: "7a-D", Subject: "D", Scope: models.CourseScopeClass, Class: class, Slots: slots(0, 3, 0, 4)}
	lane := &models.Course{ID: 3, Label: "EF-D-GK1", Subject: "D", Scope: models.CourseScopeLane, Slots: slots(0, 3, 0, 4)}

	unroomed := NewRoomAssignmentService(nil).AssignAll([]*models.Course{physics, german, lane}, rooms)
	assert.Zero(t, unroomed)

	assert.Equal(t, models.RoomCategorySpecialist, physics.Room.Category)
	assert.Equal(t, "PH", physics.Room.Subject)
	assert.Equal(t, "R-7a", german.Room.Name)
	assert.Equal(t, models.RoomCategoryGeneric, lane.Room.Category)
}

func TestRoomAssignmentLedgersStayDisjoint(t *testing.T) {
	cat := buildDefaultCatalog(t, 42)
	rooms := buildRooms(cat.Classes)

	unroomed := NewRoomAssignmentService(nil).AssignAll(cat.Courses, rooms)

	ledgers := make(map[int]models.SlotSet)
	missing := 0
	for _, c := range cat.Courses {
		if c.Room == nil {
			missing++
			continue
		}
		ledger := ledgers[c.Room.ID]
		if ledger == nil {
			ledger = models.NewSlotSet()
			ledgers[c.Room.ID] = ledger
		}
		require.False(t, ledger.Overlaps(c.Slots), "room %s double booked by %s", c.Room.Name, c.Label)
		ledger.Add(c.Slots...)
	}
	assert.Equal(t, missing, unroomed)
}

func TestNewRoomPools(t *testing.T) {
	classes := []*models.SchoolClass{{ID: 1, Grade: "5", Section: "a"}, {ID: 2, Grade: "5", Section: "b"}}
	pools := NewRoomPools(buildRooms(classes))

	assert.Len(t, pools.Homerooms, 2)
	assert.Len(t, pools.Homeroom["5b"], 1)
	assert.Len(t, pools.Specialist["SP"], specialistRoomsPerSubject)
	assert.Len(t, pools.Generic, genericRoomCount)
}
