package scheduler

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RunStats describes how a run reached its result.
type RunStats struct {
	Strategy      Strategy              `json:"strategy"`
	Attempts      int                   `json:"attempts"`
	Built         int                   `json:"built"`
	Discarded     int                   `json:"discarded"`
	RelaxedPass   bool                  `json:"relaxed_pass"`
	MemorySize    int                   `json:"memory_size"`
	InitialBest   int                   `json:"initial_best"`
	FinalBest     int                   `json:"final_best"`
	Refinement    RefineStats           `json:"refinement"`
	Reasons       map[FailureReason]int `json:"reasons,omitempty"`
	LectureCount  int                   `json:"lecture_count"`
	TimetableTags map[string]string     `json:"tags,omitempty"`
}

// Result holds the returned timetables, best first.
type Result struct {
	Candidates []*Candidate
	Stats      RunStats
}

// Best returns the lowest-dissonance timetable.
func (r *Result) Best() *Candidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0]
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger routes engine diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRand overrides the random source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// Engine runs the build, score and refine pipeline for one catalog. An
// engine owns its random source and is not safe for concurrent use; run
// independent engines for parallel work.
type Engine struct {
	catalog *Catalog
	rng     *rand.Rand
	logger  *zap.Logger
}

// New constructs an engine. The random source is seeded from the run config
// when a seed is set.
func New(catalog *Catalog, opts ...Option) *Engine {
	seed := catalog.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		catalog: catalog,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateTimetable returns the single best clash-free timetable.
func GenerateTimetable(cfg RunConfig, rooms []Room, teachers []Teacher, batches []Batch, subjects []Subject, opts ...Option) (*Result, error) {
	catalog, err := NewCatalog(cfg, rooms, teachers, batches, subjects)
	if err != nil {
		return nil, err
	}
	return New(catalog, opts...).Run(1)
}

// GenerateTimetableSet returns up to count clash-free timetables, best first.
func GenerateTimetableSet(cfg RunConfig, rooms []Room, teachers []Teacher, batches []Batch, subjects []Subject, count int, opts ...Option) (*Result, error) {
	catalog, err := NewCatalog(cfg, rooms, teachers, batches, subjects)
	if err != nil {
		return nil, err
	}
	return New(catalog, opts...).Run(count)
}

// Run builds a harmony memory, refines it for the configured generations and
// returns up to count validated timetables.
func (e *Engine) Run(count int) (*Result, error) {
	if count < 1 {
		count = 1
	}
	cfg := e.catalog.Config
	tasks := ExpandLectures(e.catalog)
	if failure := precheckFailure(e.catalog, tasks); failure != nil {
		return nil, failure
	}

	size := cfg.HarmonyMemorySize
	if count > size {
		size = count
	}
	attempts := cfg.MaxBuildAttempts
	if attempts <= 0 {
		attempts = 3 * size
		if count > 1 {
			attempts = DefaultSetBuildAttempts
		}
	}

	stats := RunStats{
		Strategy:     cfg.Strategy,
		MemorySize:   size,
		Reasons:      make(map[FailureReason]int),
		LectureCount: len(tasks),
	}
	memory := NewHarmonyMemory(size)
	e.populate(memory, NewBuilder(e.catalog, e.rng), tasks, attempts, &stats)

	if memory.Len() < count && cfg.relaxedRetry() {
		stats.RelaxedPass = true
		e.logger.Debug("harmony memory below minimum, retrying with relaxed thresholds",
			zap.Int("members", memory.Len()),
			zap.Int("required", count),
		)
		e.populate(memory, NewRoundRobinBuilder(e.catalog, e.rng, RelaxedCoverage), tasks, attempts, &stats)
	}
	if memory.Len() == 0 {
		return nil, newFailure(e.catalog, tasks, stats.Attempts, stats.Reasons)
	}

	initial := memory.Members()
	stats.InitialBest = memory.Best().Dissonance
	stats.Refinement = NewRefiner(memory, cfg, e.rng).Run(cfg.generations())

	candidates := e.collect(memory.Members(), initial, count, &stats)
	if len(candidates) == 0 {
		return nil, newFailure(e.catalog, tasks, stats.Attempts, stats.Reasons)
	}
	stats.FinalBest = candidates[0].Dissonance
	if cfg.Department != "" || cfg.Shift != "" {
		stats.TimetableTags = map[string]string{"department": cfg.Department, "shift": cfg.Shift}
	}

	e.logger.Info("timetable run finished",
		zap.String("strategy", string(cfg.Strategy)),
		zap.Int("attempts", stats.Attempts),
		zap.Int("built", stats.Built),
		zap.Int("discarded", stats.Discarded),
		zap.Bool("relaxed_pass", stats.RelaxedPass),
		zap.Int("initial_best", stats.InitialBest),
		zap.Int("final_best", stats.FinalBest),
		zap.Int("returned", len(candidates)),
	)
	return &Result{Candidates: candidates, Stats: stats}, nil
}

func (e *Engine) populate(memory *HarmonyMemory, builder Builder, tasks []LectureTask, attempts int, stats *RunStats) {
	shuffled := make([]LectureTask, len(tasks))
	for i := 0; i < attempts && !memory.Full(); i++ {
		copy(shuffled, tasks)
		e.rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		stats.Attempts++
		result := builder.Build(shuffled)
		if result.Candidate == nil {
			stats.Reasons[result.Reason]++
			continue
		}
		if conflicts := FindConflicts(result.Candidate.Assignments, e.catalog.Config.MaxBatchLoadPerDay); len(conflicts) > 0 {
			e.discard(result.Candidate, conflicts, ReasonConflict, stats)
			continue
		}
		result.Candidate.Dissonance = Dissonance(result.Candidate)
		memory.Add(result.Candidate)
		stats.Built++
	}
}

// collect returns up to count distinct clash-free timetables, best first.
// Refined members that clash are discarded. When too few survive, validated
// members from before refinement fill the shortfall.
func (e *Engine) collect(refined, initial []*Candidate, count int, stats *RunStats) []*Candidate {
	out := make([]*Candidate, 0, count)
	seen := make(map[string]struct{}, count)
	take := func(c *Candidate) {
		key := fingerprint(c)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		clone := c.Clone()
		sortAssignments(e.catalog, clone.Assignments)
		out = append(out, clone)
	}

	for _, member := range refined {
		if len(out) == count {
			break
		}
		if conflicts := FindConflicts(member.Assignments, e.catalog.Config.MaxBatchLoadPerDay); len(conflicts) > 0 {
			e.discard(member, conflicts, ReasonRefinementConflict, stats)
			continue
		}
		take(member)
	}
	for _, member := range initial {
		if len(out) == count {
			break
		}
		take(member)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dissonance < out[j].Dissonance
	})
	return out
}

// fingerprint identifies a timetable by its placements, independent of order.
func fingerprint(c *Candidate) string {
	keys := make([]string, len(c.Assignments))
	for i, a := range c.Assignments {
		keys[i] = a.SubjectID + "|" + a.BatchID + "|" + a.RoomID + "|" + a.Day + "|" + strconv.Itoa(a.SlotIndex)
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

func (e *Engine) discard(c *Candidate, conflicts []Conflict, reason FailureReason, stats *RunStats) {
	stats.Discarded++
	stats.Reasons[reason]++
	details := make([]string, 0, len(conflicts))
	for _, conflict := range conflicts {
		details = append(details, conflict.String())
	}
	e.logger.Debug("discarded candidate after validation",
		zap.String("reason", string(reason)),
		zap.Int("assignments", len(c.Assignments)),
		zap.Strings("conflicts", details),
	)
}
