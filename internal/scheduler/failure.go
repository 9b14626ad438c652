package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

var reasonHints = map[FailureReason]string{
	ReasonNoSlot:             "teachers or batches ran out of free periods: reduce weekly occurrences, add days or slots per day, or relax teacher unavailability",
	ReasonNoFreeRoom:         "every room was already booked in the chosen period: add rooms or spread lectures over more slots",
	ReasonNoRoomCapacity:     "no free room is large enough for some batches: add larger rooms or split the batches",
	ReasonNoRoomCategory:     "lab and lecture rooms do not match demand: add lab rooms for lab subjects or lecture rooms for theory subjects",
	ReasonCoverage:           "partial timetables covered too few days or lectures: add faculty or reduce weekly occurrences",
	ReasonConflict:           "built timetables exceeded the daily batch load or clashed on validation: add days or slots, or reduce weekly occurrences",
	ReasonRefinementConflict: "period swaps during refinement produced clashing timetables: enable mutation validation or lower the pitch adjustment rate",
}

// FailureError is returned when no clash-free timetable could be produced.
// Hint is meant for the operator and names the likely causes in order.
type FailureError struct {
	Attempts int
	Reasons  map[FailureReason]int
	Hint     string
}

func (e *FailureError) Error() string {
	return "timetable generation failed: " + e.Hint
}

func newFailure(catalog *Catalog, tasks []LectureTask, attempts int, reasons map[FailureReason]int) *FailureError {
	type tally struct {
		reason FailureReason
		count  int
	}
	ordered := make([]tally, 0, len(reasons))
	for reason, count := range reasons {
		if count > 0 {
			ordered = append(ordered, tally{reason: reason, count: count})
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count == ordered[j].count {
			return ordered[i].reason < ordered[j].reason
		}
		return ordered[i].count > ordered[j].count
	})

	causes := make([]string, 0, len(ordered)+4)
	for _, t := range ordered {
		causes = append(causes, fmt.Sprintf("%s (%d attempts)", reasonHints[t.reason], t.count))
	}
	causes = append(causes, demandNotes(catalog, tasks)...)

	var b strings.Builder
	fmt.Fprintf(&b, "could not build a clash-free timetable after %d attempts", attempts)
	if len(causes) > 0 {
		b.WriteString("; likely causes:")
		for i, cause := range causes {
			fmt.Fprintf(&b, " %d) %s;", i+1, cause)
		}
	}
	return &FailureError{
		Attempts: attempts,
		Reasons:  reasons,
		Hint:     strings.TrimSuffix(b.String(), ";"),
	}
}

// precheckFailure catches inputs that can never yield a timetable.
func precheckFailure(catalog *Catalog, tasks []LectureTask) *FailureError {
	switch {
	case len(tasks) == 0:
		return &FailureError{
			Reasons: map[FailureReason]int{},
			Hint:    "no lectures to schedule: every subject needs at least one batch and a positive weekly count",
		}
	case len(catalog.Rooms) == 0:
		return &FailureError{
			Reasons: map[FailureReason]int{ReasonNoFreeRoom: 1},
			Hint:    "insufficient rooms: no rooms were supplied",
		}
	}
	return nil
}

// demandNotes compares weekly demand against the periods available to it.
func demandNotes(catalog *Catalog, tasks []LectureTask) []string {
	periods := len(catalog.Config.Days) * catalog.Config.SlotsPerDay
	var notes []string

	if roomPeriods := periods * len(catalog.Rooms); len(tasks) > roomPeriods {
		notes = append(notes, fmt.Sprintf("too few room periods: %d lectures for %d room-slots", len(tasks), roomPeriods))
	}

	perBatch := make(map[string]int)
	perTeacher := make(map[string]int)
	for _, task := range tasks {
		perBatch[task.BatchID]++
		perTeacher[task.TeacherID]++
	}
	for _, id := range sortedKeys(perBatch) {
		if perBatch[id] > periods {
			notes = append(notes, fmt.Sprintf("batch %s needs %d lectures but the week has %d slots", id, perBatch[id], periods))
		}
	}
	for _, id := range sortedKeys(perTeacher) {
		free := periods
		if teacher, ok := catalog.Teacher(id); ok {
			free -= len(catalog.unavailable[teacher.ID])
		}
		if perTeacher[id] > free {
			notes = append(notes, fmt.Sprintf("insufficient faculty: teacher %s has %d lectures but only %d available slots", id, perTeacher[id], free))
		}
	}
	return notes
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
