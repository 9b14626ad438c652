package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/harmony-timetable-api/internal/models"
)

// TimetableSlotRepository manages the lectures placed inside timetables.
type TimetableSlotRepository struct {
	db *sqlx.DB
}

// NewTimetableSlotRepository builds repository.
func NewTimetableSlotRepository(db *sqlx.DB) *TimetableSlotRepository {
	return &TimetableSlotRepository{db: db}
}

func (r *TimetableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes every slot of a timetable. The unique index on
// (timetable_id, batch_id, day_index, slot_index) rejects batch clashes.
func (r *TimetableSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_slots (id, timetable_id, subject_id, subject_name, teacher_id, teacher_name, batch_id, batch_name, room_id, day, day_index, slot_index, created_at)
VALUES (:id, :timetable_id, :subject_id, :subject_name, :teacher_id, :teacher_name, :batch_id, :batch_name, :room_id, :day, :day_index, :slot_index, :created_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.TimetableID == "" {
			return fmt.Errorf("timetable slot %d has no timetable_id", i)
		}
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}
	return nil
}

// ListByTimetable returns slots ordered by day, slot and batch.
func (r *TimetableSlotRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	const query = `SELECT id, timetable_id, subject_id, subject_name, teacher_id, teacher_name, batch_id, batch_name, room_id, day, day_index, slot_index, created_at
FROM timetable_slots WHERE timetable_id = $1 ORDER BY day_index ASC, slot_index ASC, batch_id ASC`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}
