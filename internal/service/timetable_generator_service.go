package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/harmony-timetable-api/internal/dto"
	"github.com/noah-isme/harmony-timetable-api/internal/models"
	"github.com/noah-isme/harmony-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
	"github.com/noah-isme/harmony-timetable-api/pkg/events"
)

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
}

type timetableSlotRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.TimetableEvent) error
}

// Generation modes used in logs and metrics.
const (
	generationModeSingle = "single"
	generationModeSet    = "set"
)

// TimetableGeneratorConfig governs generator behaviour and request limits.
type TimetableGeneratorConfig struct {
	DefaultHMS         int
	DefaultPAR         float64
	DefaultGenerations int
	SetMaxAttempts     int
	MaxTimetables      int
	MaxRooms           int
	MaxSubjects        int
}

// TimetableGeneratorService runs the harmony search engine and manages the
// resulting proposals and stored timetables.
type TimetableGeneratorService struct {
	timetables timetableRepository
	slots      timetableSlotRepository
	tx         txProvider
	proposals  *ProposalStore
	events     eventPublisher
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableGeneratorConfig
}

// NewTimetableGeneratorService wires generator dependencies.
func NewTimetableGeneratorService(
	timetables timetableRepository,
	slots timetableSlotRepository,
	tx txProvider,
	proposals *ProposalStore,
	publisher eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableGeneratorConfig,
) *TimetableGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if proposals == nil {
		proposals = NewProposalStore(0, nil, logger)
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if cfg.MaxTimetables <= 0 {
		cfg.MaxTimetables = 10
	}
	if cfg.SetMaxAttempts <= 0 {
		cfg.SetMaxAttempts = scheduler.DefaultSetBuildAttempts
	}
	return &TimetableGeneratorService{
		timetables: timetables,
		slots:      slots,
		tx:         tx,
		proposals:  proposals,
		events:     publisher,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the single best timetable and stores it as a proposal.
func (s *TimetableGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	result, stats, err := s.run(ctx, req, 1)
	if err != nil {
		return nil, err
	}
	proposals := s.storeProposals(ctx, req, result, stats)
	return &dto.GenerateTimetableResponse{TimetableProposal: proposals[0], Stats: stats}, nil
}

// GenerateSet builds up to Count distinct timetables, best first.
func (s *TimetableGeneratorService) GenerateSet(ctx context.Context, req dto.GenerateTimetableSetRequest) (*dto.GenerateTimetableSetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable set payload")
	}
	if req.Count > s.cfg.MaxTimetables {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("count must not exceed %d", s.cfg.MaxTimetables))
	}
	result, stats, err := s.run(ctx, req.GenerateTimetableRequest, req.Count)
	if err != nil {
		return nil, err
	}
	return &dto.GenerateTimetableSetResponse{
		Proposals: s.storeProposals(ctx, req.GenerateTimetableRequest, result, stats),
		Stats:     stats,
	}, nil
}

// run executes one engine instance. Each call owns its engine, so concurrent
// requests never share random state or harmony memory.
func (s *TimetableGeneratorService) run(ctx context.Context, req dto.GenerateTimetableRequest, count int) (*scheduler.Result, dto.GenerationStats, error) {
	if err := s.checkLimits(req); err != nil {
		return nil, dto.GenerationStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, dto.GenerationStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
	}

	mode := generationModeSingle
	if count > 1 {
		mode = generationModeSet
	}
	cfg := s.runConfig(req, count)
	rooms, teachers, batches, subjects := catalogFromRequest(req)
	opts := []scheduler.Option{scheduler.WithLogger(s.logger.Named("scheduler"))}

	start := time.Now()
	var (
		result *scheduler.Result
		err    error
	)
	if count > 1 {
		result, err = scheduler.GenerateTimetableSet(cfg, rooms, teachers, batches, subjects, count, opts...)
	} else {
		result, err = scheduler.GenerateTimetable(cfg, rooms, teachers, batches, subjects, opts...)
	}
	duration := time.Since(start)

	obs := GenerationObservation{Mode: mode, Duration: duration}
	if err != nil {
		var failure *scheduler.FailureError
		switch {
		case errors.Is(err, scheduler.ErrInvalidConfig):
			obs.Outcome = GenerationOutcomeError
			s.metrics.ObserveGeneration(obs)
			return nil, dto.GenerationStats{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		case errors.As(err, &failure):
			obs.Outcome = GenerationOutcomeInfeasible
			s.metrics.ObserveGeneration(obs)
			s.logger.Info("timetable generation infeasible",
				zap.String("mode", mode),
				zap.String("department", req.Department),
				zap.Int("attempts", failure.Attempts),
				zap.String("hint", failure.Hint),
			)
			infeasible := appErrors.Wrap(failure, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status, failure.Hint)
			return nil, dto.GenerationStats{}, infeasible.WithDetails(map[string]any{
				"attempts": failure.Attempts,
				"reasons":  failure.Reasons,
			})
		default:
			obs.Outcome = GenerationOutcomeError
			s.metrics.ObserveGeneration(obs)
			return nil, dto.GenerationStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
		}
	}

	stats := statsFromRun(result.Stats, duration)
	obs.Outcome = GenerationOutcomeSuccess
	obs.BestDissonance = result.Best().Dissonance
	obs.Discarded = result.Stats.Discarded
	obs.RelaxedPass = result.Stats.RelaxedPass
	s.metrics.ObserveGeneration(obs)
	return result, stats, nil
}

func (s *TimetableGeneratorService) checkLimits(req dto.GenerateTimetableRequest) error {
	if s.cfg.MaxRooms > 0 && len(req.Rooms) > s.cfg.MaxRooms {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rooms must not exceed %d entries", s.cfg.MaxRooms))
	}
	if s.cfg.MaxSubjects > 0 && len(req.Subjects) > s.cfg.MaxSubjects {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subjects must not exceed %d entries", s.cfg.MaxSubjects))
	}
	return nil
}

func (s *TimetableGeneratorService) runConfig(req dto.GenerateTimetableRequest, count int) scheduler.RunConfig {
	opts := req.Options
	cfg := scheduler.RunConfig{
		Days:                 req.Days,
		SlotsPerDay:          req.SlotsPerDay,
		HarmonyMemorySize:    opts.HarmonyMemorySize,
		PitchAdjustmentRate:  opts.PitchAdjustmentRate,
		Generations:          opts.Generations,
		TimetableCount:       count,
		Department:           req.Department,
		Shift:                req.Shift,
		Strategy:             scheduler.Strategy(opts.Strategy),
		MaxBuildAttempts:     opts.MaxBuildAttempts,
		MaxTeacherLoadPerDay: opts.MaxTeacherLoadPerDay,
		MaxBatchLoadPerDay:   opts.MaxBatchLoadPerDay,
		ValidateMutations:    opts.ValidateMutations,
		RelaxedRetry:         opts.RelaxedRetry,
		Seed:                 opts.Seed,
	}
	if cfg.HarmonyMemorySize == 0 {
		cfg.HarmonyMemorySize = s.cfg.DefaultHMS
	}
	if cfg.PitchAdjustmentRate == nil {
		par := s.cfg.DefaultPAR
		cfg.PitchAdjustmentRate = &par
	}
	if cfg.Generations == nil {
		generations := s.cfg.DefaultGenerations
		cfg.Generations = &generations
	}
	if count > 1 && cfg.MaxBuildAttempts == 0 {
		cfg.MaxBuildAttempts = s.cfg.SetMaxAttempts
	}
	return cfg
}

func catalogFromRequest(req dto.GenerateTimetableRequest) ([]scheduler.Room, []scheduler.Teacher, []scheduler.Batch, []scheduler.Subject) {
	rooms := make([]scheduler.Room, 0, len(req.Rooms))
	for _, r := range req.Rooms {
		rooms = append(rooms, scheduler.Room{ID: r.ID, Capacity: r.Capacity, Category: scheduler.RoomCategory(r.Category)})
	}
	teachers := make([]scheduler.Teacher, 0, len(req.Teachers))
	for _, t := range req.Teachers {
		blocked := make([]scheduler.DaySlot, 0, len(t.Unavailable))
		for _, ds := range t.Unavailable {
			blocked = append(blocked, scheduler.DaySlot{Day: ds.Day, Slot: ds.Slot})
		}
		teachers = append(teachers, scheduler.Teacher{ID: t.ID, Name: t.Name, Unavailable: blocked})
	}
	batches := make([]scheduler.Batch, 0, len(req.Batches))
	for _, b := range req.Batches {
		batches = append(batches, scheduler.Batch{ID: b.ID, Name: b.Name, Size: b.Size})
	}
	subjects := make([]scheduler.Subject, 0, len(req.Subjects))
	for _, sub := range req.Subjects {
		subjects = append(subjects, scheduler.Subject{
			ID:        sub.ID,
			Name:      sub.Name,
			TeacherID: sub.TeacherID,
			BatchIDs:  sub.BatchIDs,
			PerWeek:   sub.PerWeek,
			NeedsLab:  sub.NeedsLab,
		})
	}
	return rooms, teachers, batches, subjects
}

func statsFromRun(stats scheduler.RunStats, duration time.Duration) dto.GenerationStats {
	out := dto.GenerationStats{
		Strategy:     string(stats.Strategy),
		Attempts:     stats.Attempts,
		Built:        stats.Built,
		Discarded:    stats.Discarded,
		RelaxedPass:  stats.RelaxedPass,
		InitialBest:  stats.InitialBest,
		FinalBest:    stats.FinalBest,
		Generations:  stats.Refinement.Generations,
		Accepted:     stats.Refinement.Accepted,
		Rejected:     stats.Refinement.Rejected,
		LectureCount: stats.LectureCount,
		DurationMs:   duration.Milliseconds(),
	}
	if len(stats.Reasons) > 0 {
		out.Reasons = make(map[string]int, len(stats.Reasons))
		for reason, n := range stats.Reasons {
			out.Reasons[string(reason)] = n
		}
	}
	return out
}

func (s *TimetableGeneratorService) storeProposals(ctx context.Context, req dto.GenerateTimetableRequest, result *scheduler.Result, stats dto.GenerationStats) []dto.TimetableProposal {
	out := make([]dto.TimetableProposal, 0, len(result.Candidates))
	for i, candidate := range result.Candidates {
		stored := s.proposals.save(ctx, timetableProposal{
			ProposalID:  uuid.NewString(),
			Rank:        i + 1,
			Department:  req.Department,
			Shift:       req.Shift,
			Days:        req.Days,
			SlotsPerDay: req.SlotsPerDay,
			Dissonance:  candidate.Dissonance,
			Unplaced:    candidate.Unplaced,
			Assignments: candidate.Assignments,
			Stats:       stats,
		})
		out = append(out, proposalDTO(stored))
	}
	return out
}

func proposalDTO(p timetableProposal) dto.TimetableProposal {
	assignments := make([]dto.SlotAssignment, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		assignments = append(assignments, dto.SlotAssignment{
			SubjectID:   a.SubjectID,
			SubjectName: a.SubjectName,
			TeacherID:   a.TeacherID,
			TeacherName: a.TeacherName,
			BatchID:     a.BatchID,
			BatchName:   a.BatchName,
			RoomID:      a.RoomID,
			Day:         a.Day,
			SlotIndex:   a.SlotIndex,
		})
	}
	return dto.TimetableProposal{
		ProposalID:  p.ProposalID,
		Rank:        p.Rank,
		Dissonance:  p.Dissonance,
		Unplaced:    p.Unplaced,
		Assignments: assignments,
		ExpiresAt:   p.ExpiresAt,
	}
}

// GetProposal returns a stored proposal that has not expired.
func (s *TimetableGeneratorService) GetProposal(ctx context.Context, proposalID string) (*dto.TimetableProposal, error) {
	proposal, ok := s.proposals.get(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	out := proposalDTO(proposal)
	return &out, nil
}

// Save persists a proposal as the next timetable version for its department
// and shift. With Publish the version is stored as APPROVED.
func (s *TimetableGeneratorService) Save(ctx context.Context, req dto.SaveTimetableRequest, actorID string) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.proposals.get(ctx, req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, marshalErr := json.Marshal(map[string]any{
		"proposalId":  proposal.ProposalID,
		"rank":        proposal.Rank,
		"days":        proposal.Days,
		"slotsPerDay": proposal.SlotsPerDay,
		"generatedAt": proposal.CreatedAt,
		"stats":       proposal.Stats,
		"algorithm":   "harmony_search",
	})
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	record := &models.Timetable{
		Department: proposal.Department,
		Shift:      proposal.Shift,
		Status:     models.TimetableStatusPending,
		Dissonance: proposal.Dissonance,
		Meta:       types.JSONText(metaBytes),
	}
	if req.Publish {
		record.Status = models.TimetableStatusApproved
	}
	if actorID != "" {
		record.CreatedBy = &actorID
	}

	start := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.CreateVersioned(ctx, tx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	dayIndex := make(map[string]int, len(proposal.Days))
	for i, day := range proposal.Days {
		dayIndex[day] = i
	}
	slots := make([]models.TimetableSlot, 0, len(proposal.Assignments))
	for _, a := range proposal.Assignments {
		slots = append(slots, models.TimetableSlot{
			TimetableID: record.ID,
			SubjectID:   a.SubjectID,
			SubjectName: a.SubjectName,
			TeacherID:   a.TeacherID,
			TeacherName: a.TeacherName,
			BatchID:     a.BatchID,
			BatchName:   a.BatchName,
			RoomID:      a.RoomID,
			Day:         a.Day,
			DayIndex:    dayIndex[a.Day],
			SlotIndex:   a.SlotIndex,
		})
	}
	if err = s.slots.InsertBatch(ctx, tx, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable slots")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
	}
	s.metrics.ObserveDBQuery("timetable_save", time.Since(start))

	s.proposals.delete(ctx, req.ProposalID)
	s.logger.Info("timetable saved",
		zap.String("timetable_id", record.ID),
		zap.String("department", record.Department),
		zap.String("shift", record.Shift),
		zap.Int("version", record.Version),
		zap.Int("slots", len(slots)),
	)
	s.publish(ctx, events.TypeTimetableSaved, record)
	if req.Publish {
		s.publish(ctx, events.TypeTimetablePublished, record)
	}
	return record, nil
}

// List returns stored timetables with pagination metadata.
func (s *TimetableGeneratorService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	filter := models.TimetableFilter{
		Department: query.Department,
		Shift:      query.Shift,
		Status:     models.TimetableStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	list, total, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get loads a stored timetable.
func (s *TimetableGeneratorService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return record, nil
}

// GetSlots returns slot detail for a stored timetable.
func (s *TimetableGeneratorService) GetSlots(ctx context.Context, id string) ([]models.TimetableSlot, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}
	return slots, nil
}

// UpdateStatus moves a timetable forward in its lifecycle.
func (s *TimetableGeneratorService) UpdateStatus(ctx context.Context, id string, req dto.UpdateTimetableStatusRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.TimetableStatus(req.Status)
	if !record.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move timetable from %s to %s", record.Status, next))
	}
	if err := s.timetables.UpdateStatus(ctx, nil, id, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable status")
	}
	record.Status = next
	record.UpdatedAt = time.Now().UTC()

	switch next {
	case models.TimetableStatusApproved:
		s.publish(ctx, events.TypeTimetablePublished, record)
	case models.TimetableStatusArchived:
		s.publish(ctx, events.TypeTimetableArchived, record)
	}
	return record, nil
}

// Delete removes a timetable version that is still awaiting approval.
func (s *TimetableGeneratorService) Delete(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != models.TimetableStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "only timetables pending approval can be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.publish(ctx, events.TypeTimetableDeleted, record)
	return nil
}

// publish never fails the caller; lifecycle events are best effort.
func (s *TimetableGeneratorService) publish(ctx context.Context, eventType string, record *models.Timetable) {
	event := events.TimetableEvent{
		Type:        eventType,
		TimetableID: record.ID,
		Department:  record.Department,
		Shift:       record.Shift,
		Version:     record.Version,
		Status:      string(record.Status),
		Dissonance:  record.Dissonance,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish timetable event failed",
			zap.String("type", eventType),
			zap.String("timetable_id", record.ID),
			zap.Error(err),
		)
	}
}
