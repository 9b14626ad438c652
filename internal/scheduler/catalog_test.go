package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomKind(t *testing.T) {
	assert.Equal(t, RoomCategoryLab, Room{ID: "cs-lab-2"}.Kind())
	assert.Equal(t, RoomCategoryLecture, Room{ID: "R101"}.Kind())
	assert.Equal(t, RoomCategoryLab, Room{ID: "R101", Category: RoomCategoryLab}.Kind())
	assert.Equal(t, RoomCategoryLecture, Room{ID: "LAB-ANNEX", Category: RoomCategoryLecture}.Kind())
}

func TestNewCatalogAppliesDefaults(t *testing.T) {
	catalog := newTestCatalog(t, RunConfig{Days: []string{"Mon"}, SlotsPerDay: 4}, nil, nil, nil, nil)

	assert.Equal(t, DefaultHarmonyMemorySize, catalog.Config.HarmonyMemorySize)
	require.NotNil(t, catalog.Config.PitchAdjustmentRate)
	assert.Equal(t, DefaultPitchAdjustmentRate, *catalog.Config.PitchAdjustmentRate)
	require.NotNil(t, catalog.Config.Generations)
	assert.Equal(t, DefaultGenerations, *catalog.Config.Generations)
	assert.Equal(t, StrategyGreedy, catalog.Config.Strategy)
	assert.Equal(t, DefaultMaxTeacherLoadPerDay, catalog.Config.MaxTeacherLoadPerDay)
	assert.Equal(t, DefaultMaxBatchLoadPerDay, catalog.Config.MaxBatchLoadPerDay)
	assert.True(t, catalog.Config.relaxedRetry())
}

func TestNewCatalogRejectsInvalidConfig(t *testing.T) {
	cases := map[string]RunConfig{
		"no days":       {SlotsPerDay: 2},
		"no slots":      {Days: []string{"Mon"}},
		"duplicate day": {Days: []string{"Mon", "Mon"}, SlotsPerDay: 2},
		"blank day":     {Days: []string{" "}, SlotsPerDay: 2},
		"par too high":  {Days: []string{"Mon"}, SlotsPerDay: 2, PitchAdjustmentRate: floatPtr(1.5)},
		"negative par":  {Days: []string{"Mon"}, SlotsPerDay: 2, PitchAdjustmentRate: floatPtr(-0.1)},
		"negative gens": {Days: []string{"Mon"}, SlotsPerDay: 2, Generations: intPtr(-1)},
		"bad strategy":  {Days: []string{"Mon"}, SlotsPerDay: 2, Strategy: "simulated"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalog(cfg, nil, nil, nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCatalogLookups(t *testing.T) {
	cfg, rooms, teachers, batches, subjects := departmentFixture()
	catalog := newTestCatalog(t, cfg, rooms, teachers, batches, subjects)

	assert.True(t, catalog.TeacherUnavailable("T1", "Mon", 0))
	assert.False(t, catalog.TeacherUnavailable("T1", "Mon", 1))
	assert.False(t, catalog.TeacherUnavailable("missing", "Mon", 0))
	assert.Equal(t, 2, catalog.DayIndex("Wed"))
	assert.Len(t, catalog.DaySlots(), 30)

	batch, ok := catalog.Batch("B2")
	require.True(t, ok)
	assert.Equal(t, 35, batch.Size)
}

func TestNewCatalogKeepsExplicitZeroTuning(t *testing.T) {
	cfg := RunConfig{Days: []string{"Mon"}, SlotsPerDay: 4, PitchAdjustmentRate: floatPtr(0), Generations: intPtr(0)}
	catalog := newTestCatalog(t, cfg, nil, nil, nil, nil)

	assert.Zero(t, catalog.Config.par())
	assert.Zero(t, catalog.Config.generations())
}
