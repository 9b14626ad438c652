package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lecture(batch, teacher, room, day string, slot int) SlotAssignment {
	return SlotAssignment{BatchID: batch, TeacherID: teacher, RoomID: room, Day: day, SlotIndex: slot}
}

func TestFindConflicts(t *testing.T) {
	cases := []struct {
		name        string
		assignments []SlotAssignment
		dimension   string
		key         string
	}{
		{
			name: "room",
			assignments: []SlotAssignment{
				lecture("B1", "T1", "R1", "Mon", 0),
				lecture("B2", "T2", "R1", "Mon", 0),
			},
			dimension: DimensionRoom,
			key:       "R1",
		},
		{
			name: "teacher",
			assignments: []SlotAssignment{
				lecture("B1", "T1", "R1", "Mon", 0),
				lecture("B2", "T1", "R2", "Mon", 0),
			},
			dimension: DimensionTeacher,
			key:       "T1",
		},
		{
			name: "batch",
			assignments: []SlotAssignment{
				lecture("B1", "T1", "R1", "Tue", 3),
				lecture("B1", "T2", "R2", "Tue", 3),
			},
			dimension: DimensionBatch,
			key:       "B1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conflicts := FindConflicts(tc.assignments, 0)
			require.Len(t, conflicts, 1)
			assert.Equal(t, tc.dimension, conflicts[0].Dimension)
			assert.Equal(t, tc.key, conflicts[0].Key)
			assert.False(t, Validate(tc.assignments, 0))
		})
	}
}

func TestFindConflictsBatchDayLoad(t *testing.T) {
	var assignments []SlotAssignment
	for slot := 0; slot < 3; slot++ {
		assignments = append(assignments, lecture("B1", "T1", "R1", "Mon", slot))
	}
	assert.True(t, Validate(assignments, 3))

	conflicts := FindConflicts(assignments, 2)
	require.Len(t, conflicts, 1)
	assert.Equal(t, DimensionBatchDay, conflicts[0].Dimension)
	assert.Equal(t, "BATCH_DAY_LOAD B1 on Mon", conflicts[0].String())

	for slot := 3; slot < 7; slot++ {
		assignments = append(assignments, lecture("B1", "T1", "R1", "Mon", slot))
	}
	conflicts = FindConflicts(assignments, 0)
	require.Len(t, conflicts, 1, "default cap is %d", DefaultMaxBatchLoadPerDay)
}

func TestValidateAcceptsSharedPeriodWithoutOverlap(t *testing.T) {
	assignments := []SlotAssignment{
		lecture("B1", "T1", "R1", "Mon", 0),
		lecture("B2", "T2", "R2", "Mon", 0),
		lecture("B1", "T2", "R1", "Mon", 1),
	}
	assert.Empty(t, FindConflicts(assignments, 0))
	assert.True(t, Validate(nil, 0))
}
