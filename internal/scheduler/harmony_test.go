package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarmonyMemoryOrdering(t *testing.T) {
	memory := NewHarmonyMemory(3)
	assert.Nil(t, memory.Best())
	assert.False(t, memory.ReplaceWorst(&Candidate{Dissonance: 1}))

	for _, score := range []int{7, 2, 5} {
		require.True(t, memory.Add(&Candidate{Dissonance: score}))
	}
	assert.True(t, memory.Full())
	assert.False(t, memory.Add(&Candidate{Dissonance: 0}))
	assert.Equal(t, 2, memory.Best().Dissonance)
	assert.Equal(t, 7, memory.Worst().Dissonance)

	assert.False(t, memory.ReplaceWorst(&Candidate{Dissonance: 7}), "ties are not accepted")
	assert.True(t, memory.ReplaceWorst(&Candidate{Dissonance: 1}))

	scores := []int{}
	for _, member := range memory.Members() {
		scores = append(scores, member.Dissonance)
	}
	assert.Equal(t, []int{1, 2, 5}, scores)
}

func TestRefinerBestNeverWorsens(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()
	cfg.PitchAdjustmentRate = floatPtr(1)
	catalog := newTestCatalog(t, cfg, rooms, teachers, batches, subjects)
	rng := seeded(11)

	memory := NewHarmonyMemory(5)
	builder := NewGreedyBuilder(catalog, rng)
	tasks := ExpandLectures(catalog)
	for i := 0; i < 200 && !memory.Full(); i++ {
		result := builder.Build(tasks)
		if result.Candidate == nil {
			continue
		}
		result.Candidate.Dissonance = Dissonance(result.Candidate)
		memory.Add(result.Candidate)
	}
	require.True(t, memory.Full())
	initial := memory.Best().Dissonance

	stats := NewRefiner(memory, catalog.Config, rng).Run(200)
	assert.Equal(t, 200, stats.Generations)
	assert.Equal(t, 200, stats.Mutations)
	require.Len(t, stats.BestHistory, 200)

	previous := initial
	for _, best := range stats.BestHistory {
		assert.LessOrEqual(t, best, previous)
		previous = best
	}
}

func clashProneMemory() *HarmonyMemory {
	memory := NewHarmonyMemory(1)
	memory.Add(&Candidate{Assignments: []SlotAssignment{
		lecture("X", "T1", "R1", "Mon", 0),
		lecture("Y", "T2", "R1", "Mon", 1),
		lecture("X", "T3", "R2", "Mon", 1),
	}})
	return memory
}

func TestRefinerValidateMutationsRejectsClashes(t *testing.T) {
	memory := clashProneMemory()
	cfg := RunConfig{PitchAdjustmentRate: floatPtr(1), ValidateMutations: true}

	stats := NewRefiner(memory, cfg, seeded(5)).Run(100)
	assert.Positive(t, stats.Rejected)
	assert.Zero(t, stats.Accepted)
	assert.True(t, Validate(memory.Best().Assignments, 0))
}

func TestRefinerWithoutValidationNeverRejects(t *testing.T) {
	memory := clashProneMemory()
	cfg := RunConfig{PitchAdjustmentRate: floatPtr(1)}

	stats := NewRefiner(memory, cfg, seeded(5)).Run(100)
	assert.Zero(t, stats.Rejected)
	assert.Equal(t, 100, stats.Mutations)
}

func TestRefinerWithZeroRateLeavesMemory(t *testing.T) {
	memory := clashProneMemory()
	before := memory.Best().Clone()

	stats := NewRefiner(memory, RunConfig{PitchAdjustmentRate: floatPtr(0)}, seeded(5)).Run(20)
	assert.Zero(t, stats.Mutations)
	assert.Equal(t, before.Assignments, memory.Best().Assignments)
}
