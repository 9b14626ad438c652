package scheduler

import (
	"math"
	"sort"
)

const (
	// InfiniteDissonance scores an absent candidate; it sorts after every real score.
	InfiniteDissonance = math.MaxInt
	// FatiguePenalty is charged per back-to-back triple in a teacher's day.
	FatiguePenalty = 5
)

type ownerDay struct {
	owner string
	day   string
}

// Dissonance scores a candidate: one point per hole inside each batch-day and
// teacher-day block, plus FatiguePenalty per run of three consecutive slots a
// teacher teaches. Lower is better.
func Dissonance(c *Candidate) int {
	if c == nil {
		return InfiniteDissonance
	}
	batchDays := make(map[ownerDay][]int)
	teacherDays := make(map[ownerDay][]int)
	for _, a := range c.Assignments {
		bk := ownerDay{owner: a.BatchID, day: a.Day}
		tk := ownerDay{owner: a.TeacherID, day: a.Day}
		batchDays[bk] = append(batchDays[bk], a.SlotIndex)
		teacherDays[tk] = append(teacherDays[tk], a.SlotIndex)
	}

	penalty := 0
	for _, groups := range []map[ownerDay][]int{batchDays, teacherDays} {
		for _, slots := range groups {
			penalty += holes(slots)
		}
	}
	for _, slots := range teacherDays {
		penalty += fatigue(slots)
	}
	return penalty
}

// holes sorts slots in place and returns the gaps inside their span. A
// double-booked slot would make the span arithmetic negative, so the result
// is floored at zero.
func holes(slots []int) int {
	if len(slots) <= 1 {
		return 0
	}
	sort.Ints(slots)
	gaps := (slots[len(slots)-1] - slots[0] + 1) - len(slots)
	if gaps < 0 {
		return 0
	}
	return gaps
}

// fatigue expects sorted slots.
func fatigue(slots []int) int {
	if len(slots) < 3 {
		return 0
	}
	penalty := 0
	for i := 0; i+2 < len(slots); i++ {
		if slots[i+1] == slots[i]+1 && slots[i+2] == slots[i]+2 {
			penalty += FatiguePenalty
		}
	}
	return penalty
}
