package scheduler

import (
	"math/rand"
)

// FailureReason classifies why a build or a run could not produce a timetable.
type FailureReason string

const (
	ReasonNoSlot         FailureReason = "no_slot"
	ReasonNoFreeRoom     FailureReason = "no_free_room"
	ReasonNoRoomCapacity FailureReason = "no_room_capacity"
	ReasonNoRoomCategory FailureReason = "no_room_category"
	ReasonCoverage       FailureReason = "coverage"
	ReasonConflict       FailureReason = "conflict"

	// ReasonRefinementConflict counts refined members that clashed after a
	// period swap and were dropped from the result.
	ReasonRefinementConflict FailureReason = "refinement_conflict"
)

// BuildResult is the outcome of one constructive attempt. Candidate is nil on failure.
type BuildResult struct {
	Candidate *Candidate
	Reason    FailureReason
	Placed    int
	Total     int
}

// Builder produces one candidate timetable from a shuffled task list.
type Builder interface {
	Strategy() Strategy
	Build(tasks []LectureTask) BuildResult
}

// Coverage holds the post-hoc acceptance thresholds of the round-robin builder.
type Coverage struct {
	Days  float64
	Tasks float64
}

var (
	StrictCoverage  = Coverage{Days: 0.8, Tasks: 0.5}
	RelaxedCoverage = Coverage{Days: 0.5, Tasks: 0.3}
)

// NewBuilder returns the builder configured for the catalog.
func NewBuilder(catalog *Catalog, rng *rand.Rand) Builder {
	if catalog.Config.Strategy == StrategyRoundRobin {
		return NewRoundRobinBuilder(catalog, rng, StrictCoverage)
	}
	return NewGreedyBuilder(catalog, rng)
}

// --- occupancy index ---

type occupancy struct {
	teachers   map[DaySlot]map[string]struct{}
	batches    map[DaySlot]map[string]struct{}
	rooms      map[DaySlot]map[string]struct{}
	teacherDay map[string]map[string]int
}

func newOccupancy() *occupancy {
	return &occupancy{
		teachers:   make(map[DaySlot]map[string]struct{}),
		batches:    make(map[DaySlot]map[string]struct{}),
		rooms:      make(map[DaySlot]map[string]struct{}),
		teacherDay: make(map[string]map[string]int),
	}
}

func occupied(index map[DaySlot]map[string]struct{}, key DaySlot, id string) bool {
	_, ok := index[key][id]
	return ok
}

func mark(index map[DaySlot]map[string]struct{}, key DaySlot, id string) {
	if index[key] == nil {
		index[key] = make(map[string]struct{})
	}
	index[key][id] = struct{}{}
}

func (o *occupancy) teacherBusy(id string, key DaySlot) bool { return occupied(o.teachers, key, id) }
func (o *occupancy) batchBusy(id string, key DaySlot) bool   { return occupied(o.batches, key, id) }
func (o *occupancy) roomBusy(id string, key DaySlot) bool    { return occupied(o.rooms, key, id) }

func (o *occupancy) teacherLoad(id, day string) int {
	return o.teacherDay[id][day]
}

func (o *occupancy) reserve(a SlotAssignment) {
	key := DaySlot{Day: a.Day, Slot: a.SlotIndex}
	mark(o.teachers, key, a.TeacherID)
	mark(o.batches, key, a.BatchID)
	mark(o.rooms, key, a.RoomID)
	if o.teacherDay[a.TeacherID] == nil {
		o.teacherDay[a.TeacherID] = make(map[string]int)
	}
	o.teacherDay[a.TeacherID][a.Day]++
}

// suitableRooms filters free rooms by capacity, then by category. With
// relaxCategory, a failed category filter falls back to every room that fits.
func suitableRooms(rooms []Room, occ *occupancy, key DaySlot, task LectureTask, relaxCategory bool) ([]Room, FailureReason) {
	var free []Room
	for _, room := range rooms {
		if !occ.roomBusy(room.ID, key) {
			free = append(free, room)
		}
	}
	if len(free) == 0 {
		return nil, ReasonNoFreeRoom
	}

	var fit []Room
	for _, room := range free {
		if room.Capacity >= task.BatchSize {
			fit = append(fit, room)
		}
	}
	if len(fit) == 0 {
		return nil, ReasonNoRoomCapacity
	}

	want := RoomCategoryLecture
	if task.NeedsLab {
		want = RoomCategoryLab
	}
	var matched []Room
	for _, room := range fit {
		if room.Kind() == want {
			matched = append(matched, room)
		}
	}
	if len(matched) == 0 {
		if relaxCategory {
			return fit, ""
		}
		return nil, ReasonNoRoomCategory
	}
	return matched, ""
}

// --- greedy-sequential policy ---

// GreedyBuilder places tasks in order at a uniformly random legal period and
// room, abandoning the whole build on the first task that cannot be placed.
type GreedyBuilder struct {
	catalog *Catalog
	rng     *rand.Rand
}

// NewGreedyBuilder constructs the greedy policy.
func NewGreedyBuilder(catalog *Catalog, rng *rand.Rand) *GreedyBuilder {
	return &GreedyBuilder{catalog: catalog, rng: rng}
}

// Strategy implements Builder.
func (b *GreedyBuilder) Strategy() Strategy { return StrategyGreedy }

// Build implements Builder.
func (b *GreedyBuilder) Build(tasks []LectureTask) BuildResult {
	occ := newOccupancy()
	periods := b.catalog.DaySlots()
	assignments := make([]SlotAssignment, 0, len(tasks))

	for i, task := range tasks {
		options := make([]DaySlot, 0, len(periods))
		for _, key := range periods {
			if b.catalog.TeacherUnavailable(task.TeacherID, key.Day, key.Slot) {
				continue
			}
			if occ.teacherBusy(task.TeacherID, key) || occ.batchBusy(task.BatchID, key) {
				continue
			}
			options = append(options, key)
		}
		if len(options) == 0 {
			return BuildResult{Reason: ReasonNoSlot, Placed: i, Total: len(tasks)}
		}
		key := options[b.rng.Intn(len(options))]

		rooms, reason := suitableRooms(b.catalog.Rooms, occ, key, task, false)
		if len(rooms) == 0 {
			return BuildResult{Reason: reason, Placed: i, Total: len(tasks)}
		}
		room := rooms[b.rng.Intn(len(rooms))]

		assignment := task.assign(key.Day, key.Slot, room.ID)
		occ.reserve(assignment)
		assignments = append(assignments, assignment)
	}

	return BuildResult{
		Candidate: &Candidate{Assignments: assignments},
		Placed:    len(tasks),
		Total:     len(tasks),
	}
}

// --- balanced round-robin policy ---

// RoundRobinBuilder spreads tasks across days, backfills leftovers in a second
// pass and accepts partial timetables that meet its coverage thresholds. Room
// category matching is relaxed to any fitting room when no match is free.
type RoundRobinBuilder struct {
	catalog  *Catalog
	rng      *rand.Rand
	coverage Coverage
}

// NewRoundRobinBuilder constructs the round-robin policy.
func NewRoundRobinBuilder(catalog *Catalog, rng *rand.Rand, coverage Coverage) *RoundRobinBuilder {
	return &RoundRobinBuilder{catalog: catalog, rng: rng, coverage: coverage}
}

// Strategy implements Builder.
func (b *RoundRobinBuilder) Strategy() Strategy { return StrategyRoundRobin }

// Build implements Builder.
func (b *RoundRobinBuilder) Build(tasks []LectureTask) BuildResult {
	days := b.catalog.Config.Days
	occ := newOccupancy()
	placed := make([]bool, len(tasks))
	assignments := make([]SlotAssignment, 0, len(tasks))
	var lastReason FailureReason

	place := func(idx int, key DaySlot) bool {
		assignment, reason := b.tryPlace(occ, tasks[idx], key)
		if reason != "" {
			lastReason = reason
			return false
		}
		occ.reserve(assignment)
		assignments = append(assignments, assignment)
		placed[idx] = true
		return true
	}

	buckets := make([][]int, len(days))
	for i := range tasks {
		d := i % len(days)
		buckets[d] = append(buckets[d], i)
	}
	for d, day := range days {
		for slot := 0; slot < b.catalog.Config.SlotsPerDay; slot++ {
			key := DaySlot{Day: day, Slot: slot}
			for _, idx := range buckets[d] {
				if !placed[idx] && place(idx, key) {
					break
				}
			}
		}
	}

	periods := b.catalog.DaySlots()
	for idx := range tasks {
		if placed[idx] {
			continue
		}
		for _, key := range periods {
			if place(idx, key) {
				break
			}
		}
	}

	covered := make(map[string]struct{}, len(days))
	for _, a := range assignments {
		covered[a.Day] = struct{}{}
	}
	result := BuildResult{Placed: len(assignments), Total: len(tasks)}
	if float64(len(covered)) < b.coverage.Days*float64(len(days)) ||
		float64(len(assignments)) < b.coverage.Tasks*float64(len(tasks)) {
		result.Reason = ReasonCoverage
		if len(assignments) < len(tasks) && lastReason != "" {
			result.Reason = lastReason
		}
		return result
	}
	result.Candidate = &Candidate{Assignments: assignments, Unplaced: len(tasks) - len(assignments)}
	return result
}

func (b *RoundRobinBuilder) tryPlace(occ *occupancy, task LectureTask, key DaySlot) (SlotAssignment, FailureReason) {
	if b.catalog.TeacherUnavailable(task.TeacherID, key.Day, key.Slot) ||
		occ.teacherBusy(task.TeacherID, key) ||
		occ.batchBusy(task.BatchID, key) ||
		occ.teacherLoad(task.TeacherID, key.Day) >= b.catalog.Config.MaxTeacherLoadPerDay {
		return SlotAssignment{}, ReasonNoSlot
	}
	rooms, reason := suitableRooms(b.catalog.Rooms, occ, key, task, true)
	if len(rooms) == 0 {
		return SlotAssignment{}, reason
	}
	room := rooms[b.rng.Intn(len(rooms))]
	return task.assign(key.Day, key.Slot, room.ID), ""
}
