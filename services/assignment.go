package services

import (
	"errors"
	"sort"

	"accommodation-backend/models"
)

// PlannedRoom is one room the assignment pass filled: a single with one
// occupant or a double with two roommates.
type PlannedRoom struct {
	RoomType  models.RoomType   `json:"room_type"`
	Occupants []models.Occupant `json:"occupants"`
}

// UnplacedOccupant is someone the pass could not fit.
type UnplacedOccupant struct {
	ParticipantID uint   `json:"participant_id"`
	Name          string `json:"name"`
	Reason        string `json:"reason"`
}

// AssignmentPlan is the output of one greedy pass. Unplaced occupants are a
// reported result, not an error.
type AssignmentPlan struct {
	Rooms       []PlannedRoom      `json:"rooms"`
	Unplaced    []UnplacedOccupant `json:"unplaced"`
	SinglesUsed int                `json:"singles_used"`
	DoublesUsed int                `json:"doubles_used"`
}

func (p AssignmentPlan) Placed() int {
	n := 0
	for _, r := range p.Rooms {
		n += len(r.Occupants)
	}
	return n
}

const (
	reasonNoSingleRooms    = "no_single_rooms_left"
	reasonDuplicateBooking = "duplicate_booking"
	reasonCapacity         = "capacity_exhausted"
)

// PlanAssignment places a roster into the pool, mutating the pool's
// counters through the ledger. The pass is deterministic:
//
//  1. roster ordered by participant id
//  2. facilitators and organizers take singles
//  3. men, then women, are paired into doubles while doubles remain;
//     leftovers take singles
//  4. other/unknown gender take singles, never paired
//
// Anyone who does not fit is returned in Unplaced.
func PlanAssignment(ledger *CapacityLedger, roster []models.Occupant, pool *models.VendorRoomPool) AssignmentPlan {
	ordered := make([]models.Occupant, len(roster))
	copy(ordered, roster)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ParticipantID < ordered[j].ParticipantID
	})

	var leads, male, female, other []models.Occupant
	for _, o := range ordered {
		if o.Leads() {
			leads = append(leads, o)
			continue
		}
		switch o.Gender {
		case models.GenderMale:
			male = append(male, o)
		case models.GenderFemale:
			female = append(female, o)
		default:
			other = append(other, o)
		}
	}

	plan := AssignmentPlan{Rooms: []PlannedRoom{}, Unplaced: []UnplacedOccupant{}}

	placeSingle := func(o models.Occupant) {
		if err := ledger.Reserve(pool, models.RoomSingle, 1); err != nil {
			plan.Unplaced = append(plan.Unplaced, unplaced(o, err))
			return
		}
		plan.Rooms = append(plan.Rooms, PlannedRoom{RoomType: models.RoomSingle, Occupants: []models.Occupant{o}})
		plan.SinglesUsed++
	}

	for _, o := range leads {
		placeSingle(o)
	}

	for _, group := range [][]models.Occupant{male, female} {
		i := 0
		for len(group)-i >= 2 {
			if err := ledger.Reserve(pool, models.RoomDouble, 2); err != nil {
				break
			}
			plan.Rooms = append(plan.Rooms, PlannedRoom{
				RoomType:  models.RoomDouble,
				Occupants: []models.Occupant{group[i], group[i+1]},
			})
			plan.DoublesUsed++
			i += 2
		}
		for _, o := range group[i:] {
			placeSingle(o)
		}
	}

	for _, o := range other {
		placeSingle(o)
	}

	return plan
}

func unplaced(o models.Occupant, err error) UnplacedOccupant {
	reason := reasonCapacity
	if errors.Is(err, ErrCapacityExhausted) {
		reason = reasonNoSingleRooms
	}
	return UnplacedOccupant{ParticipantID: o.ParticipantID, Name: o.Name, Reason: reason}
}
