package scheduler

import "fmt"

// Conflict dimensions reported by FindConflicts.
const (
	DimensionRoom     = "ROOM"
	DimensionTeacher  = "TEACHER"
	DimensionBatch    = "BATCH"
	DimensionBatchDay = "BATCH_DAY_LOAD"
)

// Conflict describes one clash found in a set of assignments.
type Conflict struct {
	Dimension string `json:"dimension"`
	Key       string `json:"key"`
	Day       string `json:"day"`
	Slot      int    `json:"slot"`
}

func (c Conflict) String() string {
	if c.Dimension == DimensionBatchDay {
		return fmt.Sprintf("%s %s on %s", c.Dimension, c.Key, c.Day)
	}
	return fmt.Sprintf("%s %s at %s/%d", c.Dimension, c.Key, c.Day, c.Slot)
}

type occupantKey struct {
	period DaySlot
	id     string
}

// FindConflicts re-checks assignments for double booking of rooms, teachers
// and batches, and for batches over maxBatchPerDay lectures on one day. It
// keeps no state shared with the builders.
func FindConflicts(assignments []SlotAssignment, maxBatchPerDay int) []Conflict {
	if maxBatchPerDay <= 0 {
		maxBatchPerDay = DefaultMaxBatchLoadPerDay
	}
	rooms := make(map[occupantKey]struct{}, len(assignments))
	teachers := make(map[occupantKey]struct{}, len(assignments))
	batches := make(map[occupantKey]struct{}, len(assignments))
	batchDay := make(map[[2]string]int)

	var conflicts []Conflict
	check := func(index map[occupantKey]struct{}, dimension, id string, period DaySlot) {
		key := occupantKey{period: period, id: id}
		if _, dup := index[key]; dup {
			conflicts = append(conflicts, Conflict{Dimension: dimension, Key: id, Day: period.Day, Slot: period.Slot})
			return
		}
		index[key] = struct{}{}
	}

	for _, a := range assignments {
		period := DaySlot{Day: a.Day, Slot: a.SlotIndex}
		check(rooms, DimensionRoom, a.RoomID, period)
		check(teachers, DimensionTeacher, a.TeacherID, period)
		check(batches, DimensionBatch, a.BatchID, period)

		bd := [2]string{a.BatchID, a.Day}
		batchDay[bd]++
		if batchDay[bd] == maxBatchPerDay+1 {
			conflicts = append(conflicts, Conflict{Dimension: DimensionBatchDay, Key: a.BatchID, Day: a.Day, Slot: -1})
		}
	}
	return conflicts
}

// Validate reports whether the assignments are clash free.
func Validate(assignments []SlotAssignment, maxBatchPerDay int) bool {
	return len(FindConflicts(assignments, maxBatchPerDay)) == 0
}
