package scheduler

import (
	"math/rand"
	"sort"
)

// HarmonyMemory is a bounded population of scored candidates kept sorted
// ascending by dissonance.
type HarmonyMemory struct {
	size    int
	members []*Candidate
}

// NewHarmonyMemory allocates a memory holding at most size candidates.
func NewHarmonyMemory(size int) *HarmonyMemory {
	if size < 1 {
		size = 1
	}
	return &HarmonyMemory{size: size, members: make([]*Candidate, 0, size)}
}

// Size is the configured capacity.
func (m *HarmonyMemory) Size() int { return m.size }

// Len is the number of stored candidates.
func (m *HarmonyMemory) Len() int { return len(m.members) }

// Full reports whether the memory reached its capacity.
func (m *HarmonyMemory) Full() bool { return len(m.members) >= m.size }

// Add stores a scored candidate while there is room for it.
func (m *HarmonyMemory) Add(c *Candidate) bool {
	if c == nil || m.Full() {
		return false
	}
	m.members = append(m.members, c)
	m.sort()
	return true
}

// Best returns the lowest-dissonance candidate, or nil when empty.
func (m *HarmonyMemory) Best() *Candidate {
	if len(m.members) == 0 {
		return nil
	}
	return m.members[0]
}

// Worst returns the highest-dissonance candidate, or nil when empty.
func (m *HarmonyMemory) Worst() *Candidate {
	if len(m.members) == 0 {
		return nil
	}
	return m.members[len(m.members)-1]
}

// ReplaceWorst swaps in c when it scores strictly better than the worst member.
func (m *HarmonyMemory) ReplaceWorst(c *Candidate) bool {
	worst := m.Worst()
	if c == nil || worst == nil || c.Dissonance >= worst.Dissonance {
		return false
	}
	m.members[len(m.members)-1] = c
	m.sort()
	return true
}

// Members returns the candidates in ascending dissonance order.
func (m *HarmonyMemory) Members() []*Candidate {
	out := make([]*Candidate, len(m.members))
	copy(out, m.members)
	return out
}

func (m *HarmonyMemory) sort() {
	sort.SliceStable(m.members, func(i, j int) bool {
		return m.members[i].Dissonance < m.members[j].Dissonance
	})
}

// RefineStats summarises a refinement loop.
type RefineStats struct {
	Generations int   `json:"generations"`
	Mutations   int   `json:"mutations"`
	Accepted    int   `json:"accepted"`
	Rejected    int   `json:"rejected"`
	BestHistory []int `json:"-"`
}

// Refiner improves the best member of a harmony memory by pitch adjustment:
// a random swap of two assignments' day and slot. Swapped candidates are
// rescored but only re-validated when validateMutations is set.
type Refiner struct {
	memory            *HarmonyMemory
	par               float64
	validateMutations bool
	maxBatchPerDay    int
	rng               *rand.Rand
}

// NewRefiner binds a refiner to a populated memory.
func NewRefiner(memory *HarmonyMemory, cfg RunConfig, rng *rand.Rand) *Refiner {
	return &Refiner{
		memory:            memory,
		par:               cfg.par(),
		validateMutations: cfg.ValidateMutations,
		maxBatchPerDay:    cfg.MaxBatchLoadPerDay,
		rng:               rng,
	}
}

// StepOutcome reports what a refinement generation did to the memory.
type StepOutcome int

const (
	StepKept StepOutcome = iota
	StepAccepted
	StepRejected
)

// Step runs one generation.
func (r *Refiner) Step() (mutated bool, outcome StepOutcome) {
	best := r.memory.Best()
	if best == nil {
		return false, StepKept
	}
	next := best.Clone()

	if r.rng.Float64() < r.par && len(next.Assignments) > 1 {
		n := len(next.Assignments)
		i := r.rng.Intn(n)
		j := r.rng.Intn(n - 1)
		if j >= i {
			j++
		}
		a, b := &next.Assignments[i], &next.Assignments[j]
		a.Day, b.Day = b.Day, a.Day
		a.SlotIndex, b.SlotIndex = b.SlotIndex, a.SlotIndex
		mutated = true

		if r.validateMutations && !Validate(next.Assignments, r.maxBatchPerDay) {
			return mutated, StepRejected
		}
	}

	next.Dissonance = Dissonance(next)
	if r.memory.ReplaceWorst(next) {
		return mutated, StepAccepted
	}
	return mutated, StepKept
}

// Run executes a fixed number of generations.
func (r *Refiner) Run(generations int) RefineStats {
	stats := RefineStats{BestHistory: make([]int, 0, generations)}
	for g := 0; g < generations; g++ {
		mutated, outcome := r.Step()
		stats.Generations++
		if mutated {
			stats.Mutations++
		}
		switch outcome {
		case StepAccepted:
			stats.Accepted++
		case StepRejected:
			stats.Rejected++
		}
		if best := r.memory.Best(); best != nil {
			stats.BestHistory = append(stats.BestHistory, best.Dissonance)
		}
	}
	return stats
}
