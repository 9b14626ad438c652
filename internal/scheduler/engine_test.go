package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateTimetableSingleDay(t *testing.T) {
	cfg := RunConfig{Days: []string{"Mon"}, SlotsPerDay: 2, HarmonyMemorySize: 5, Generations: intPtr(10), Seed: 1}
	result, err := GenerateTimetable(cfg,
		[]Room{{ID: "R1", Capacity: 20}},
		[]Teacher{{ID: "T1", Name: "Dr. Rao"}},
		[]Batch{{ID: "B1", Name: "CSE-A", Size: 10}},
		[]Subject{{ID: "S1", Name: "Maths", TeacherID: "T1", BatchIDs: []string{"B1"}, PerWeek: 2}},
	)
	require.NoError(t, err)

	best := result.Best()
	require.NotNil(t, best)
	require.Len(t, best.Assignments, 2)
	assert.Zero(t, best.Dissonance)
	assert.Equal(t, 0, best.Assignments[0].SlotIndex)
	assert.Equal(t, 1, best.Assignments[1].SlotIndex)
	for _, a := range best.Assignments {
		assert.Equal(t, "R1", a.RoomID)
		assert.Equal(t, "Mon", a.Day)
		assert.Equal(t, "Dr. Rao", a.TeacherName)
	}
	assert.False(t, result.Stats.RelaxedPass)
	assert.Equal(t, 2, result.Stats.LectureCount)
}

func TestGenerateTimetableSetProperties(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()
	cfg.Department = "CSE"
	cfg.Shift = "morning"

	result, err := GenerateTimetableSet(cfg, rooms, teachers, batches, subjects, 3, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.LessOrEqual(t, len(result.Candidates), 3)
	assert.False(t, result.Stats.RelaxedPass)
	assert.Equal(t, map[string]string{"department": "CSE", "shift": "morning"}, result.Stats.TimetableTags)

	byID := map[string]Room{}
	for _, room := range rooms {
		byID[room.ID] = room
	}
	for i, candidate := range result.Candidates {
		if i > 0 {
			assert.GreaterOrEqual(t, candidate.Dissonance, result.Candidates[i-1].Dissonance)
		}
		assert.Equal(t, Dissonance(candidate.Clone()), candidate.Dissonance)
		assert.Len(t, candidate.Assignments, 15)
		assert.True(t, Validate(candidate.Assignments, cfg.MaxBatchLoadPerDay))
		for _, a := range candidate.Assignments {
			room := byID[a.RoomID]
			assert.GreaterOrEqual(t, room.Capacity, a.BatchSize)
			assert.Equal(t, a.NeedsLab, room.Kind() == RoomCategoryLab)
		}
	}
	assert.Equal(t, result.Candidates[0].Dissonance, result.Stats.FinalBest)
}

func TestGenerateTimetableIsDeterministicForSeed(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()

	first, err := GenerateTimetable(cfg, rooms, teachers, batches, subjects)
	require.NoError(t, err)
	second, err := GenerateTimetable(cfg, rooms, teachers, batches, subjects)
	require.NoError(t, err)

	assert.Equal(t, first.Best().Assignments, second.Best().Assignments)
}

func TestGenerateTimetableWithoutRooms(t *testing.T) {
	cfg := RunConfig{Days: []string{"Mon"}, SlotsPerDay: 2, Seed: 1}
	_, err := GenerateTimetable(cfg, nil,
		[]Teacher{{ID: "T1"}},
		[]Batch{{ID: "B1", Size: 10}},
		[]Subject{{ID: "S1", TeacherID: "T1", BatchIDs: []string{"B1"}, PerWeek: 1}},
	)
	require.Error(t, err)

	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Contains(t, failure.Hint, "insufficient rooms")
}

func TestGenerateTimetableRelaxedRetry(t *testing.T) {
	rooms := []Room{{ID: "PHY-LAB", Capacity: 50}}
	teachers := []Teacher{{ID: "T1"}}
	batches := []Batch{{ID: "B1", Size: 10}}
	subjects := []Subject{{ID: "S1", TeacherID: "T1", BatchIDs: []string{"B1"}, PerWeek: 2}}

	strict := RunConfig{Days: []string{"Mon"}, SlotsPerDay: 2, HarmonyMemorySize: 3, Seed: 1, RelaxedRetry: boolPtr(false)}
	_, err := GenerateTimetable(strict, rooms, teachers, batches, subjects)
	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 9, failure.Attempts)
	assert.Equal(t, 9, failure.Reasons[ReasonNoRoomCategory])
	assert.Contains(t, failure.Hint, "add lab rooms")

	relaxed := strict
	relaxed.RelaxedRetry = nil
	result, err := GenerateTimetable(relaxed, rooms, teachers, batches, subjects)
	require.NoError(t, err)
	assert.True(t, result.Stats.RelaxedPass)
	assert.Len(t, result.Best().Assignments, 2)
}

func TestGenerateTimetableCapacityFailure(t *testing.T) {
	cfg := RunConfig{Days: []string{"Mon", "Tue"}, SlotsPerDay: 3, HarmonyMemorySize: 2, Seed: 3}
	_, err := GenerateTimetable(cfg,
		[]Room{{ID: "R1", Capacity: 5}},
		[]Teacher{{ID: "T1"}},
		[]Batch{{ID: "B1", Size: 40}},
		[]Subject{{ID: "S1", TeacherID: "T1", BatchIDs: []string{"B1"}, PerWeek: 2}},
	)
	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Positive(t, failure.Reasons[ReasonNoRoomCapacity])
	assert.Contains(t, failure.Hint, "large enough")
}

func TestGenerateTimetableRejectsInvalidConfig(t *testing.T) {
	_, err := GenerateTimetable(RunConfig{SlotsPerDay: 2}, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngineRoundRobinStrategy(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()
	cfg.Strategy = StrategyRoundRobin
	catalog := newTestCatalog(t, cfg, rooms, teachers, batches, subjects)

	result, err := New(catalog, WithRand(seeded(9))).Run(2)
	require.NoError(t, err)
	assert.Equal(t, StrategyRoundRobin, result.Stats.Strategy)
	for _, candidate := range result.Candidates {
		assert.True(t, Validate(candidate.Assignments, cfg.MaxBatchLoadPerDay))
	}
}

func TestGenerateTimetableSurvivesUnvalidatedRefinement(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()
	cfg.ValidateMutations = false

	discarded := 0
	for seed := int64(1); seed <= 50; seed++ {
		cfg.Seed = seed
		result, err := GenerateTimetable(cfg, rooms, teachers, batches, subjects)
		require.NoError(t, err, "seed %d", seed)
		require.Len(t, result.Candidates, 1)
		assert.True(t, Validate(result.Best().Assignments, cfg.MaxBatchLoadPerDay), "seed %d", seed)
		assert.Len(t, result.Best().Assignments, 15)
		assert.LessOrEqual(t, result.Stats.Reasons[ReasonRefinementConflict], result.Stats.Discarded)
		discarded += result.Stats.Reasons[ReasonRefinementConflict]
	}
	assert.Positive(t, discarded)
}

func TestGenerateTimetableSetReturnsDistinctTimetables(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()

	result, err := GenerateTimetableSet(cfg, rooms, teachers, batches, subjects, 5)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 5)

	seen := map[string]bool{}
	for _, candidate := range result.Candidates {
		key := fingerprint(candidate)
		assert.False(t, seen[key], "duplicate timetable returned")
		seen[key] = true
	}
}

func TestGenerateTimetableHonoursZeroTuning(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()
	cfg.PitchAdjustmentRate = floatPtr(0)
	cfg.Generations = intPtr(0)

	result, err := GenerateTimetable(cfg, rooms, teachers, batches, subjects)
	require.NoError(t, err)
	assert.Zero(t, result.Stats.Refinement.Generations)
	assert.Zero(t, result.Stats.Refinement.Mutations)
	assert.Equal(t, result.Stats.InitialBest, result.Stats.FinalBest)

	cfg.Generations = intPtr(40)
	result, err = GenerateTimetable(cfg, rooms, teachers, batches, subjects)
	require.NoError(t, err)
	assert.Equal(t, 40, result.Stats.Refinement.Generations)
	assert.Zero(t, result.Stats.Refinement.Mutations)
}

func TestEngineCollectDropsClashingRefinedMembers(t *testing.T) {
	catalog := newTestCatalog(t, RunConfig{Days: []string{"Mon", "Tue"}, SlotsPerDay: 2}, nil, nil, nil, nil)
	engine := New(catalog, WithRand(seeded(1)))

	clashing := &Candidate{Dissonance: 0, Assignments: []SlotAssignment{
		lecture("B1", "T1", "R1", "Mon", 0),
		lecture("B2", "T1", "R2", "Mon", 0),
	}}
	cleanA := &Candidate{Dissonance: 1, Assignments: []SlotAssignment{
		lecture("B1", "T1", "R1", "Mon", 0),
		lecture("B2", "T1", "R2", "Mon", 1),
	}}
	cleanACopy := cleanA.Clone()
	cleanB := &Candidate{Dissonance: 2, Assignments: []SlotAssignment{
		lecture("B1", "T1", "R1", "Tue", 0),
		lecture("B2", "T1", "R2", "Mon", 1),
	}}
	stats := RunStats{Reasons: map[FailureReason]int{}}

	out := engine.collect([]*Candidate{clashing, cleanACopy}, []*Candidate{cleanA, cleanB}, 3, &stats)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Dissonance)
	assert.Equal(t, 2, out[1].Dissonance)
	assert.Equal(t, 1, stats.Discarded)
	assert.Equal(t, 1, stats.Reasons[ReasonRefinementConflict])
	assert.Zero(t, stats.Reasons[ReasonConflict])

	stats = RunStats{Reasons: map[FailureReason]int{}}
	out = engine.collect([]*Candidate{clashing}, []*Candidate{cleanB}, 1, &stats)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Dissonance)
	assert.Equal(t, "Mon", out[0].Assignments[0].Day)
}
