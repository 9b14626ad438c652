package main

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/harmony-timetable-api/internal/scheduler"
)

func TestLoadPayloadAndGenerate(t *testing.T) {
	in, err := loadPayload(filepath.Join("testdata", "department.json"))
	require.NoError(t, err)
	assert.Len(t, in.Rooms, 3)
	assert.Equal(t, "T1", in.Subjects[0].TeacherID)

	result, err := scheduler.GenerateTimetable(in.Config, in.Rooms, in.Teachers, in.Batches, in.Subjects)
	require.NoError(t, err)
	assert.Len(t, result.Best().Assignments, 7)
}

func TestFailureCarriesHint(t *testing.T) {
	out := failure(&scheduler.FailureError{Attempts: 3, Hint: "insufficient rooms", Reasons: map[scheduler.FailureReason]int{scheduler.ReasonNoFreeRoom: 2}})
	assert.Equal(t, "insufficient rooms", out.Hint)
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, out.Reasons, 1)

	out = failure(fmt.Errorf("%w: slots_per_day must be positive", scheduler.ErrInvalidConfig))
	assert.Equal(t, "slots_per_day must be positive", out.Hint)
}
