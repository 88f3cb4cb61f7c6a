package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

// RoomAssignmentService books every course into a room without overlaps.
type RoomAssignmentService struct {
	logger *zap.Logger
}

// NewRoomAssignmentService constructs the room engine.
func NewRoomAssignmentService(logger *zap.Logger) *RoomAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomAssignmentService{logger: logger}
}

// AssignRoom books course into the first room, pool by pool, whose ledger is
// free at every slot of the course.
func AssignRoom(course *models.Course, pools ...[]*models.Room) bool {
	for _, pool := range pools {
		for _, room := range pool {
			if room.Book(course) {
				return true
			}
		}
	}
	return false
}

// RoomPools partitions a room catalog for the assignment passes.
type RoomPools struct {
	Specialist map[string][]*models.Room
	Homeroom   map[string][]*models.Room
	Homerooms  []*models.Room
	Generic    []*models.Room
}

// NewRoomPools groups rooms by category, keeping catalog order inside each pool.
func NewRoomPools(rooms []*models.Room) RoomPools {
	pools := RoomPools{
		Specialist: make(map[string][]*models.Room),
		Homeroom:   make(map[string][]*models.Room),
	}
	for _, r := range rooms {
		switch r.Category {
		case models.RoomCategorySpecialist:
			pools.Specialist[r.Subject] = append(pools.Specialist[r.Subject], r)
		case models.RoomCategoryHomeroom:
			pools.Homeroom[r.ClassKey] = append(pools.Homeroom[r.ClassKey], r)
			pools.Homerooms = append(pools.Homerooms, r)
		default:
			pools.Generic = append(pools.Generic, r)
		}
	}
	return pools
}

// AssignAll runs the three passes: specialist rooms, own homeroom, overflow.
// It returns the number of courses left without a room.
func (s *RoomAssignmentService) AssignAll(courses []*models.Course, rooms []*models.Room) int {
	pools := NewRoomPools(rooms)

	for _, c := range courses {
		if specialist, ok := pools.Specialist[c.Subject]; ok {
			AssignRoom(c, specialist, pools.Generic)
		}
	}

	for _, c := range courses {
		if c.Room == nil && c.ClassBound() {
			AssignRoom(c, pools.Homeroom[c.Class.Key()], pools.Generic)
		}
	}

	overflow := make([]*models.Room, 0, len(pools.Generic)+len(pools.Homerooms))
	overflow = append(overflow, pools.Generic...)
	overflow = append(overflow, pools.Homerooms...)
	unroomed := 0
	for _, c := range courses {
		if c.Room != nil {
			continue
		}
		if !AssignRoom(c, overflow) {
			unroomed++
			s.logger.Sugar().Warnw("no free room", "course", c.Label, "slots", len(c.Slots))
		}
	}

	s.logger.Sugar().Infow("rooms assigned", "courses", len(courses), "rooms", len(rooms), "unroomed", unroomed)
	return unroomed
}
