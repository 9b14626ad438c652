package scheduler

import "sort"

const unknownName = "N/A"

// LectureTask is one unscheduled teaching obligation.
type LectureTask struct {
	SubjectID   string
	SubjectName string
	TeacherID   string
	TeacherName string
	BatchID     string
	BatchName   string
	BatchSize   int
	NeedsLab    bool
}

// SlotAssignment is a lecture task bound to a day, slot and room.
type SlotAssignment struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	BatchID     string `json:"batch_id"`
	BatchName   string `json:"batch_name"`
	BatchSize   int    `json:"batch_size"`
	NeedsLab    bool   `json:"needs_lab"`
	RoomID      string `json:"room_id"`
	Day         string `json:"day"`
	SlotIndex   int    `json:"slot_index"`
}

func (t LectureTask) assign(day string, slot int, roomID string) SlotAssignment {
	return SlotAssignment{
		SubjectID:   t.SubjectID,
		SubjectName: t.SubjectName,
		TeacherID:   t.TeacherID,
		TeacherName: t.TeacherName,
		BatchID:     t.BatchID,
		BatchName:   t.BatchName,
		BatchSize:   t.BatchSize,
		NeedsLab:    t.NeedsLab,
		RoomID:      roomID,
		Day:         day,
		SlotIndex:   slot,
	}
}

// Candidate is one scored timetable.
type Candidate struct {
	Assignments []SlotAssignment `json:"assignments"`
	Dissonance  int              `json:"dissonance"`
	Unplaced    int              `json:"unplaced,omitempty"`
}

// Clone returns a copy that shares no backing storage with c.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := &Candidate{Dissonance: c.Dissonance, Unplaced: c.Unplaced}
	out.Assignments = make([]SlotAssignment, len(c.Assignments))
	copy(out.Assignments, c.Assignments)
	return out
}

// sortAssignments orders assignments by week position, then batch.
func sortAssignments(catalog *Catalog, assignments []SlotAssignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		da, db := catalog.DayIndex(a.Day), catalog.DayIndex(b.Day)
		if da != db {
			return da < db
		}
		if a.SlotIndex != b.SlotIndex {
			return a.SlotIndex < b.SlotIndex
		}
		return a.BatchID < b.BatchID
	})
}

// ExpandLectures turns every subject into PerWeek tasks per listed batch.
func ExpandLectures(catalog *Catalog) []LectureTask {
	var tasks []LectureTask
	for _, subject := range catalog.Subjects {
		teacherName := unknownName
		if teacher, ok := catalog.Teacher(subject.TeacherID); ok {
			teacherName = teacher.Name
		}
		for _, batchID := range subject.BatchIDs {
			batchName, batchSize := unknownName, 0
			if batch, ok := catalog.Batch(batchID); ok {
				batchName, batchSize = batch.Name, batch.Size
			}
			for i := 0; i < subject.PerWeek; i++ {
				tasks = append(tasks, LectureTask{
					SubjectID:   subject.ID,
					SubjectName: subject.Name,
					TeacherID:   subject.TeacherID,
					TeacherName: teacherName,
					BatchID:     batchID,
					BatchName:   batchName,
					BatchSize:   batchSize,
					NeedsLab:    subject.NeedsLab,
				})
			}
		}
	}
	return tasks
}
