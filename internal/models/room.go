package models

// RoomCategory groups rooms into the pools used by room assignment.
type RoomCategory string

const (
	RoomCategorySpecialist RoomCategory = "specialist"
	RoomCategoryHomeroom   RoomCategory = "homeroom"
	RoomCategoryGeneric    RoomCategory = "generic"
)

// Room holds a booking ledger of at most one course per slot.
type Room struct {
	ID       int          `db:"id" json:"id" csv:"id"`
	Name     string       `db:"bezeichnung" json:"name" csv:"bezeichnung"`
	Category RoomCategory `db:"-" json:"category" csv:"kategorie"`
	// Subject is the specialist subject code, ClassKey the owning class for homerooms.
	Subject  string `db:"-" json:"subject,omitempty" csv:"fach"`
	ClassKey string `db:"-" json:"class_key,omitempty" csv:"klasse"`

	ledger map[TimeSlot]*Course
}

// IsFree reports whether none of slots is booked.
func (r *Room) IsFree(slots []TimeSlot) bool {
	for _, s := range slots {
		if _, taken := r.ledger[s]; taken {
			return false
		}
	}
	return true
}

// Book writes every slot of course into the ledger, or nothing if any slot is taken.
func (r *Room) Book(c *Course) bool {
	if !r.IsFree(c.Slots) {
		return false
	}
	if r.ledger == nil {
		r.ledger = make(map[TimeSlot]*Course, len(c.Slots))
	}
	for _, s := range c.Slots {
		r.ledger[s] = c
	}
	c.Room = r
	return true
}

// Occupant returns the course booked at slot, if any.
func (r *Room) Occupant(slot TimeSlot) *Course {
	return r.ledger[slot]
}

// Booked returns the number of booked slots.
func (r *Room) Booked() int {
	return len(r.ledger)
}
