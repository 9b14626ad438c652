package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for persisted timetables.
type TimetableStatus string

const (
	TimetableStatusPending  TimetableStatus = "PENDING_APPROVAL"
	TimetableStatusApproved TimetableStatus = "APPROVED"
	TimetableStatusArchived TimetableStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s TimetableStatus) Valid() bool {
	switch s {
	case TimetableStatusPending, TimetableStatusApproved, TimetableStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo enforces PENDING_APPROVAL -> APPROVED -> ARCHIVED, with
// pending timetables also allowed to be archived directly.
func (s TimetableStatus) CanTransitionTo(next TimetableStatus) bool {
	switch s {
	case TimetableStatusPending:
		return next == TimetableStatusApproved || next == TimetableStatusArchived
	case TimetableStatusApproved:
		return next == TimetableStatusArchived
	}
	return false
}

// Timetable is a versioned, persisted timetable for a department and shift.
type Timetable struct {
	ID         string          `db:"id" json:"id"`
	Department string          `db:"department" json:"department"`
	Shift      string          `db:"shift" json:"shift"`
	Version    int             `db:"version" json:"version"`
	Status     TimetableStatus `db:"status" json:"status"`
	Dissonance int             `db:"dissonance" json:"dissonance"`
	Meta       types.JSONText  `db:"meta" json:"meta"`
	CreatedBy  *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSlot is one lecture placed inside a persisted timetable.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	BatchName   string    `db:"batch_name" json:"batch_name"`
	RoomID      string    `db:"room_id" json:"room_id"`
	Day         string    `db:"day" json:"day"`
	DayIndex    int       `db:"day_index" json:"day_index"`
	SlotIndex   int       `db:"slot_index" json:"slot_index"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TimetableFilter captures filtering criteria for listing timetables.
type TimetableFilter struct {
	Department string
	Shift      string
	Status     TimetableStatus
	Page       int
	PageSize   int
}
