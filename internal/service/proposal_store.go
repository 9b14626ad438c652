package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/harmony-timetable-api/internal/dto"
	"github.com/noah-isme/harmony-timetable-api/internal/scheduler"
)

const proposalKeyPrefix = "timetable:proposal:"

// timetableProposal is a generated timetable waiting to be saved or exported.
type timetableProposal struct {
	ProposalID  string                     `json:"proposal_id"`
	Rank        int                        `json:"rank"`
	Department  string                     `json:"department"`
	Shift       string                     `json:"shift"`
	Days        []string                   `json:"days"`
	SlotsPerDay int                        `json:"slots_per_day"`
	Dissonance  int                        `json:"dissonance"`
	Unplaced    int                        `json:"unplaced"`
	Assignments []scheduler.SlotAssignment `json:"assignments"`
	Stats       dto.GenerationStats        `json:"stats"`
	CreatedAt   time.Time                  `json:"created_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

func (p timetableProposal) expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

type proposalCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ProposalStore keeps generated proposals for a limited time. Entries live in
// memory and are mirrored to the shared cache when one is configured, so any
// replica can save or export a proposal.
type ProposalStore struct {
	ttl    time.Duration
	cache  proposalCache
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	items map[string]timetableProposal
}

// NewProposalStore constructs a store. cache may be nil.
func NewProposalStore(ttl time.Duration, cache proposalCache, logger *zap.Logger) *ProposalStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalStore{
		ttl:    ttl,
		cache:  cache,
		logger: logger,
		now:    time.Now,
		items:  make(map[string]timetableProposal),
	}
}

// TTL reports how long proposals are retained.
func (s *ProposalStore) TTL() time.Duration {
	return s.ttl
}

func (s *ProposalStore) save(ctx context.Context, proposal timetableProposal) timetableProposal {
	now := s.now().UTC()
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = now
	}
	proposal.ExpiresAt = proposal.CreatedAt.Add(s.ttl)

	s.mu.Lock()
	s.items[proposal.ProposalID] = proposal
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, proposalKeyPrefix+proposal.ProposalID, proposal, s.ttl); err != nil {
			s.logger.Warn("mirror proposal to cache failed", zap.String("proposal_id", proposal.ProposalID), zap.Error(err))
		}
	}
	return proposal
}

func (s *ProposalStore) get(ctx context.Context, id string) (timetableProposal, bool) {
	now := s.now()
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if ok {
		if proposal.expired(now) {
			s.delete(ctx, id)
			return timetableProposal{}, false
		}
		return proposal, true
	}

	if s.cache == nil {
		return timetableProposal{}, false
	}
	var cached timetableProposal
	hit, err := s.cache.Get(ctx, proposalKeyPrefix+id, &cached)
	if err != nil || !hit || cached.expired(now) {
		return timetableProposal{}, false
	}
	s.mu.Lock()
	s.items[id] = cached
	s.mu.Unlock()
	return cached, true
}

func (s *ProposalStore) delete(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Delete(ctx, proposalKeyPrefix+id); err != nil {
			s.logger.Warn("drop cached proposal failed", zap.String("proposal_id", id), zap.Error(err))
		}
	}
}

// Sweep drops expired in-memory proposals and returns how many were removed.
// Cached copies expire through their own TTL.
func (s *ProposalStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, proposal := range s.items {
		if proposal.expired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}
