package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// RoomCategory distinguishes regular lecture rooms from laboratories.
type RoomCategory string

const (
	RoomCategoryLecture RoomCategory = "lecture"
	RoomCategoryLab     RoomCategory = "lab"
)

// Strategy names a constructive placement policy.
type Strategy string

const (
	StrategyGreedy     Strategy = "greedy"
	StrategyRoundRobin Strategy = "round_robin"
)

const (
	DefaultHarmonyMemorySize    = 20
	DefaultPitchAdjustmentRate  = 0.3
	DefaultGenerations          = 100
	DefaultMaxTeacherLoadPerDay = 4
	DefaultMaxBatchLoadPerDay   = 6
	DefaultSetBuildAttempts     = 1000
)

// DaySlot addresses one teaching period of the week.
type DaySlot struct {
	Day  string `json:"day"`
	Slot int    `json:"slot"`
}

// Room is a bookable space.
type Room struct {
	ID       string       `json:"id"`
	Capacity int          `json:"capacity"`
	Category RoomCategory `json:"category,omitempty"`
}

// Kind returns the explicit category or derives it from the identifier.
func (r Room) Kind() RoomCategory {
	if r.Category != "" {
		return r.Category
	}
	if strings.Contains(strings.ToUpper(r.ID), "LAB") {
		return RoomCategoryLab
	}
	return RoomCategoryLecture
}

// Teacher owns subjects and may block periods.
type Teacher struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Unavailable []DaySlot `json:"unavailable,omitempty"`
}

// Batch is a group of students attending lectures together.
type Batch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Subject is taught by one teacher to one or more batches PerWeek times.
type Subject struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TeacherID string   `json:"teacher"`
	BatchIDs  []string `json:"batches"`
	PerWeek   int      `json:"per_week"`
	NeedsLab  bool     `json:"needs_lab"`
}

// RunConfig carries run parameters supplied by the caller.
type RunConfig struct {
	Days                 []string `json:"days"`
	SlotsPerDay          int      `json:"slots_per_day"`
	HarmonyMemorySize    int      `json:"harmony_memory_size"`
	PitchAdjustmentRate  *float64 `json:"pitch_adjustment_rate,omitempty"`
	Generations          *int     `json:"generations,omitempty"`
	TimetableCount       int      `json:"timetable_count,omitempty"`
	Department           string   `json:"department,omitempty"`
	Shift                string   `json:"shift,omitempty"`
	Strategy             Strategy `json:"strategy,omitempty"`
	MaxBuildAttempts     int      `json:"max_build_attempts,omitempty"`
	MaxTeacherLoadPerDay int      `json:"max_teacher_load_per_day,omitempty"`
	MaxBatchLoadPerDay   int      `json:"max_batch_load_per_day,omitempty"`
	ValidateMutations    bool     `json:"validate_mutations,omitempty"`
	RelaxedRetry         *bool    `json:"relaxed_retry,omitempty"`
	Seed                 int64    `json:"seed,omitempty"`
}

// ErrInvalidConfig marks run configuration problems.
var ErrInvalidConfig = errors.New("invalid run config")

func (c RunConfig) withDefaults() RunConfig {
	if c.HarmonyMemorySize <= 0 {
		c.HarmonyMemorySize = DefaultHarmonyMemorySize
	}
	if c.PitchAdjustmentRate == nil {
		par := DefaultPitchAdjustmentRate
		c.PitchAdjustmentRate = &par
	}
	if c.Generations == nil {
		generations := DefaultGenerations
		c.Generations = &generations
	}
	if c.TimetableCount <= 0 {
		c.TimetableCount = 1
	}
	if c.Strategy == "" {
		c.Strategy = StrategyGreedy
	}
	if c.MaxTeacherLoadPerDay <= 0 {
		c.MaxTeacherLoadPerDay = DefaultMaxTeacherLoadPerDay
	}
	if c.MaxBatchLoadPerDay <= 0 {
		c.MaxBatchLoadPerDay = DefaultMaxBatchLoadPerDay
	}
	return c
}

// par is the pitch adjustment rate. An explicit zero disables swaps.
func (c RunConfig) par() float64 {
	if c.PitchAdjustmentRate == nil {
		return DefaultPitchAdjustmentRate
	}
	return *c.PitchAdjustmentRate
}

// generations is the refinement length. An explicit zero skips refinement.
func (c RunConfig) generations() int {
	if c.Generations == nil {
		return DefaultGenerations
	}
	return *c.Generations
}

// relaxedRetry defaults to enabled.
func (c RunConfig) relaxedRetry() bool {
	return c.RelaxedRetry == nil || *c.RelaxedRetry
}

func (c RunConfig) validate() error {
	if len(c.Days) == 0 {
		return fmt.Errorf("%w: at least one day is required", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Days))
	for _, day := range c.Days {
		if strings.TrimSpace(day) == "" {
			return fmt.Errorf("%w: day labels must not be blank", ErrInvalidConfig)
		}
		if _, dup := seen[day]; dup {
			return fmt.Errorf("%w: duplicate day %q", ErrInvalidConfig, day)
		}
		seen[day] = struct{}{}
	}
	if c.SlotsPerDay < 1 {
		return fmt.Errorf("%w: slots per day must be >= 1", ErrInvalidConfig)
	}
	if par := c.par(); par < 0 || par > 1 {
		return fmt.Errorf("%w: pitch adjustment rate must be within [0,1]", ErrInvalidConfig)
	}
	if c.generations() < 0 {
		return fmt.Errorf("%w: generations must be >= 0", ErrInvalidConfig)
	}
	switch c.Strategy {
	case StrategyGreedy, StrategyRoundRobin:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	return nil
}

// Catalog is the immutable per-run lookup of resources and configuration.
type Catalog struct {
	Config   RunConfig
	Rooms    []Room
	Subjects []Subject

	teachers    map[string]Teacher
	batches     map[string]Batch
	unavailable map[string]map[DaySlot]struct{}
	dayIndex    map[string]int
}

// NewCatalog normalises the run config and indexes the catalogs.
func NewCatalog(cfg RunConfig, rooms []Room, teachers []Teacher, batches []Batch, subjects []Subject) (*Catalog, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		Config:      cfg,
		Rooms:       append([]Room(nil), rooms...),
		Subjects:    append([]Subject(nil), subjects...),
		teachers:    make(map[string]Teacher, len(teachers)),
		batches:     make(map[string]Batch, len(batches)),
		unavailable: make(map[string]map[DaySlot]struct{}, len(teachers)),
		dayIndex:    make(map[string]int, len(cfg.Days)),
	}
	for i, day := range cfg.Days {
		c.dayIndex[day] = i
	}
	for _, teacher := range teachers {
		c.teachers[teacher.ID] = teacher
		blocked := make(map[DaySlot]struct{}, len(teacher.Unavailable))
		for _, ds := range teacher.Unavailable {
			blocked[ds] = struct{}{}
		}
		c.unavailable[teacher.ID] = blocked
	}
	for _, batch := range batches {
		c.batches[batch.ID] = batch
	}
	return c, nil
}

// Teacher looks up a teacher by id.
func (c *Catalog) Teacher(id string) (Teacher, bool) {
	t, ok := c.teachers[id]
	return t, ok
}

// Batch looks up a batch by id.
func (c *Catalog) Batch(id string) (Batch, bool) {
	b, ok := c.batches[id]
	return b, ok
}

// TeacherUnavailable reports whether the teacher blocked the given period.
func (c *Catalog) TeacherUnavailable(teacherID, day string, slot int) bool {
	_, blocked := c.unavailable[teacherID][DaySlot{Day: day, Slot: slot}]
	return blocked
}

// DayIndex returns the position of a day label in the configured week.
func (c *Catalog) DayIndex(day string) int {
	if idx, ok := c.dayIndex[day]; ok {
		return idx
	}
	return len(c.dayIndex)
}

// DaySlots enumerates every configured period in week order.
func (c *Catalog) DaySlots() []DaySlot {
	out := make([]DaySlot, 0, len(c.Config.Days)*c.Config.SlotsPerDay)
	for _, day := range c.Config.Days {
		for slot := 0; slot < c.Config.SlotsPerDay; slot++ {
			out = append(out, DaySlot{Day: day, Slot: slot})
		}
	}
	return out
}
