package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/harmony-timetable-api/internal/dto"
	"github.com/noah-isme/harmony-timetable-api/internal/models"
	"github.com/noah-isme/harmony-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
	"github.com/noah-isme/harmony-timetable-api/pkg/jobs"
)

// JobTypeTimetableSet labels queued timetable-set generations.
const JobTypeTimetableSet = "timetable_set"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type timetableSetGenerator interface {
	GenerateSet(ctx context.Context, req dto.GenerateTimetableSetRequest) (*dto.GenerateTimetableSetResponse, error)
}

// GenerationJobStore tracks asynchronous generation jobs in memory.
type GenerationJobStore struct {
	mu    sync.RWMutex
	items map[string]*models.GenerationJob
	now   func() time.Time
}

// NewGenerationJobStore constructs an empty store.
func NewGenerationJobStore() *GenerationJobStore {
	return &GenerationJobStore{items: make(map[string]*models.GenerationJob), now: time.Now}
}

func (s *GenerationJobStore) create(job *models.GenerationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[job.ID] = job
}

func (s *GenerationJobStore) get(id string) (models.GenerationJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.items[id]
	if !ok {
		return models.GenerationJob{}, false
	}
	out := *job
	out.ProposalIDs = append([]string(nil), job.ProposalIDs...)
	return out, true
}

func (s *GenerationJobStore) update(id string, fn func(job *models.GenerationJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.items[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// purgeFinishedBefore drops terminal jobs that finished before cutoff.
func (s *GenerationJobStore) purgeFinishedBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.items {
		if job.Status.Finished() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// GenerationJobConfig governs job submission and retention.
type GenerationJobConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxTimetables   int
}

// GenerationJobService accepts timetable-set requests for background processing.
type GenerationJobService struct {
	store     *GenerationJobStore
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GenerationJobConfig
}

// NewGenerationJobService constructs the service.
func NewGenerationJobService(store *GenerationJobStore, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger, cfg GenerationJobConfig) *GenerationJobService {
	if store == nil {
		store = NewGenerationJobStore()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.MaxTimetables <= 0 {
		cfg.MaxTimetables = 10
	}
	return &GenerationJobService{store: store, queue: queue, validator: validate, logger: logger, cfg: cfg}
}

// Submit validates the request and queues it for generation.
func (s *GenerationJobService) Submit(ctx context.Context, req dto.GenerateTimetableSetRequest, actorID string) (*dto.GenerationJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable set payload")
	}
	if req.Count > s.cfg.MaxTimetables {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("count must not exceed %d", s.cfg.MaxTimetables))
	}

	job := &models.GenerationJob{
		ID:        uuid.NewString(),
		Status:    models.GenerationJobQueued,
		Requested: req.Count,
		CreatedBy: actorID,
		CreatedAt: s.store.now().UTC(),
	}
	s.store.create(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeTimetableSet, Payload: req}); err != nil {
		now := s.store.now().UTC()
		s.store.update(job.ID, func(j *models.GenerationJob) {
			j.Status = models.GenerationJobFailed
			j.Error = "failed to enqueue job"
			j.FinishedAt = &now
		})
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, "QUEUE_FULL", http.StatusServiceUnavailable, "generation queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}

	s.logger.Info("generation job queued", zap.String("job_id", job.ID), zap.Int("count", req.Count))
	return &dto.GenerationJobResponse{
		JobID: job.ID,
		URL:   fmt.Sprintf("%s/timetables/jobs/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), job.ID),
	}, nil
}

// Status reports the current state of a job.
func (s *GenerationJobService) Status(ctx context.Context, id string) (*models.GenerationJob, error) {
	job, ok := s.store.get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found or expired")
	}
	return &job, nil
}

// StartCleanup boots a goroutine that forgets finished jobs after the result TTL.
func (s *GenerationJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *GenerationJobService) cleanupExpired() {
	cutoff := s.store.now().Add(-s.cfg.ResultTTL)
	if removed := s.store.purgeFinishedBefore(cutoff); removed > 0 {
		s.logger.Sugar().Debugw("purged finished generation jobs", "count", removed)
	}
}

// GenerationWorker bridges queue jobs to the timetable generator.
type GenerationWorker struct {
	store     *GenerationJobStore
	generator timetableSetGenerator
	logger    *zap.Logger
}

// NewGenerationWorker constructs a worker.
func NewGenerationWorker(store *GenerationJobStore, generator timetableSetGenerator, logger *zap.Logger) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationWorker{store: store, generator: generator, logger: logger}
}

// Handle processes a queue job. Infeasible and invalid requests are not retried.
func (w *GenerationWorker) Handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateTimetableSetRequest)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID))
	}
	startedAt := w.store.now().UTC()
	w.store.update(job.ID, func(j *models.GenerationJob) {
		j.Status = models.GenerationJobRunning
		j.StartedAt = &startedAt
		j.Error = ""
	})

	resp, err := w.generator.GenerateSet(ctx, req)
	if err != nil {
		code := appErrors.FromError(err).Code
		if code == appErrors.ErrInfeasible.Code || code == appErrors.ErrValidation.Code {
			return jobs.Permanent(err)
		}
		w.store.update(job.ID, func(j *models.GenerationJob) {
			j.Status = models.GenerationJobQueued
			j.Error = err.Error()
		})
		return err
	}

	ids := make([]string, 0, len(resp.Proposals))
	for _, p := range resp.Proposals {
		ids = append(ids, p.ProposalID)
	}
	finishedAt := w.store.now().UTC()
	w.store.update(job.ID, func(j *models.GenerationJob) {
		j.Status = models.GenerationJobSucceeded
		j.ProposalIDs = ids
		if len(resp.Proposals) > 0 {
			best := resp.Proposals[0].Dissonance
			j.BestScore = &best
		}
		j.FinishedAt = &finishedAt
	})
	w.logger.Info("generation job finished",
		zap.String("job_id", job.ID),
		zap.Int("proposals", len(ids)),
		zap.Int("attempt", job.Attempt+1),
	)
	return nil
}

// GiveUp marks a job failed once the queue stops retrying it.
func (w *GenerationWorker) GiveUp(job jobs.Job, err error) {
	finishedAt := w.store.now().UTC()
	message := err.Error()
	if appErr := appErrors.FromError(err); appErr.Code != appErrors.ErrInternal.Code {
		message = appErr.Message
	}
	var hint string
	var failure *scheduler.FailureError
	if errors.As(err, &failure) {
		hint = failure.Hint
	}
	if !w.store.update(job.ID, func(j *models.GenerationJob) {
		j.Status = models.GenerationJobFailed
		j.Error = message
		j.Hint = hint
		j.FinishedAt = &finishedAt
	}) {
		w.logger.Sugar().Warnw("give up on unknown generation job", "job_id", job.ID)
	}
}
