package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, cfg RunConfig, rooms []Room, teachers []Teacher, batches []Batch, subjects []Subject) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(cfg, rooms, teachers, batches, subjects)
	require.NoError(t, err)
	return catalog
}

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func boolPtr(v bool) *bool {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

// departmentFixture is a lightly loaded week that greedy placement solves easily.
func departmentFixture() (RunConfig, []Room, []Teacher, []Batch, []Subject) {
	cfg := RunConfig{
		Days:                []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		SlotsPerDay:         6,
		HarmonyMemorySize:   10,
		PitchAdjustmentRate: floatPtr(0.5),
		Generations:         intPtr(60),
		Seed:                42,
	}
	rooms := []Room{
		{ID: "R101", Capacity: 60},
		{ID: "R102", Capacity: 40},
		{ID: "R103", Capacity: 70},
		{ID: "CS-LAB-1", Capacity: 60},
	}
	teachers := []Teacher{
		{ID: "T1", Name: "Dr. Rao", Unavailable: []DaySlot{{Day: "Mon", Slot: 0}}},
		{ID: "T2", Name: "Dr. Iyer"},
		{ID: "T3", Name: "Dr. Menon", Unavailable: []DaySlot{{Day: "Fri", Slot: 5}}},
		{ID: "T4", Name: "Dr. Das"},
	}
	batches := []Batch{
		{ID: "B1", Name: "CSE-A", Size: 55},
		{ID: "B2", Name: "CSE-B", Size: 35},
		{ID: "B3", Name: "ECE-A", Size: 50},
	}
	subjects := []Subject{
		{ID: "S1", Name: "Algorithms", TeacherID: "T1", BatchIDs: []string{"B1", "B2"}, PerWeek: 3},
		{ID: "S2", Name: "Networks", TeacherID: "T2", BatchIDs: []string{"B1", "B3"}, PerWeek: 2},
		{ID: "S3", Name: "Systems Lab", TeacherID: "T3", BatchIDs: []string{"B2"}, PerWeek: 2, NeedsLab: true},
		{ID: "S4", Name: "Signals", TeacherID: "T4", BatchIDs: []string{"B3"}, PerWeek: 3},
	}
	return cfg, rooms, teachers, batches, subjects
}
