package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/planner"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

const planCachePrefix = "plans:"

type taskSource interface {
	Tasks(ctx context.Context, listID string) ([]dto.TaskInput, error)
}

type planCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type planRunRecorder interface {
	ObservePlanRun(strategy string, duration time.Duration, efficiency float64, overlaps, dropped int)
}

// PlannerConfig holds request defaults and limits.
type PlannerConfig struct {
	DayStart        timeofday.Time
	DayEnd          timeofday.Time
	DefaultStrategy planner.Strategy
	MaxTasks        int
	PlanTTL         time.Duration
	CacheTTL        time.Duration
}

// PlannerService validates plan requests, runs the engine and keeps recent plans addressable.
type PlannerService struct {
	engine    *planner.Engine
	lists     taskSource
	cache     planCache
	metrics   planRunRecorder
	store     *planStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PlannerConfig
}

// NewPlannerService wires the planner service. lists, cache and metrics may be nil.
func NewPlannerService(engine *planner.Engine, lists taskSource, cache planCache, metrics planRunRecorder, validate *validator.Validate, logger *zap.Logger, cfg PlannerConfig) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.DayEnd.IsFixed() || cfg.DayEnd == 0 {
		cfg.DayEnd = timeofday.Midnight
	}
	if !cfg.DayStart.IsFixed() {
		cfg.DayStart = 0
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = planner.StrategyGapDP
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 500
	}
	if cfg.PlanTTL <= 0 {
		cfg.PlanTTL = time.Hour
	}
	return &PlannerService{
		engine:    engine,
		lists:     lists,
		cache:     cache,
		metrics:   metrics,
		store:     newPlanStore(cfg.PlanTTL),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// planInput is a fully resolved request.
type planInput struct {
	window planner.RunOptions
	seed   int64
	seeded bool
	tasks  []planner.Task
}

// Generate computes a plan with the requested strategy.
func (s *PlannerService) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.PlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}
	strategy, err := s.resolveStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	input, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if input.seeded && s.cache != nil {
		cacheKey = s.fingerprint(strategy, input)
		var cached dto.PlanResponse
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Sugar().Warnw("plan cache lookup failed", "strategy", strategy, "error", err)
		}
		if hit {
			cached.Cached = true
			s.store.Save(cached)
			return &cached, nil
		}
	}

	resp, err := s.run(strategy, input)
	if err != nil {
		return nil, err
	}
	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("plan cache store failed", "plan_id", resp.ID, "error", err)
		}
	}
	return resp, nil
}

// Compare runs every strategy over the same tasks, window and seed.
func (s *PlannerService) Compare(ctx context.Context, req dto.GeneratePlanRequest) (*dto.ComparePlansResponse, error) {
	req.Strategy = ""
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}
	input, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &dto.ComparePlansResponse{Plans: make([]dto.PlanResponse, 0, len(planner.Strategies))}
	var best *dto.PlanResponse
	for _, strategy := range planner.Strategies {
		resp, err := s.run(strategy, input)
		if err != nil {
			return nil, err
		}
		result.Plans = append(result.Plans, *resp)
		if best == nil || resp.WorkMinutes > best.WorkMinutes ||
			(resp.WorkMinutes == best.WorkMinutes && resp.Efficiency > best.Efficiency) {
			best = resp
		}
	}
	if best != nil {
		result.Best = best.Strategy
	}
	return result, nil
}

// Get returns a plan generated within the retention window.
func (s *PlannerService) Get(ctx context.Context, id string) (*dto.PlanResponse, error) {
	plan, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found or expired")
	}
	return &plan, nil
}

func (s *PlannerService) run(strategy planner.Strategy, input planInput) (*dto.PlanResponse, error) {
	opts := input.window
	opts.Rand = rand.New(rand.NewSource(input.seed))

	started := time.Now()
	plan, err := s.engine.Run(strategy, input.tasks, opts)
	if err != nil {
		return nil, translatePlannerError(err)
	}
	if s.metrics != nil {
		s.metrics.ObservePlanRun(string(strategy), time.Since(started), plan.Efficiency, len(plan.Overlaps), len(plan.Dropped))
	}

	seed := input.seed
	resp := toPlanResponse(plan, input.tasks)
	resp.ID = uuid.NewString()
	resp.Seed = &seed
	resp.GeneratedAt = time.Now().UTC()
	s.store.Save(*resp)

	s.logger.Debug("plan generated",
		zap.String("plan_id", resp.ID),
		zap.String("strategy", resp.Strategy),
		zap.Int("entries", len(resp.Entries)),
		zap.Float64("efficiency", resp.Efficiency),
	)
	return resp, nil
}

func (s *PlannerService) resolveStrategy(raw string) (planner.Strategy, error) {
	if raw == "" {
		return s.cfg.DefaultStrategy, nil
	}
	strategy, err := planner.ParseStrategy(raw)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return strategy, nil
}

func (s *PlannerService) resolve(ctx context.Context, req dto.GeneratePlanRequest) (planInput, error) {
	window, err := s.resolveWindow(req.Start, req.End)
	if err != nil {
		return planInput{}, err
	}

	inputs := req.Tasks
	if req.TaskListID != "" {
		if len(req.Tasks) > 0 {
			return planInput{}, appErrors.Clone(appErrors.ErrValidation, "provide either tasks or taskListId, not both")
		}
		if s.lists == nil {
			return planInput{}, appErrors.Clone(appErrors.ErrNotFound, "task lists are disabled")
		}
		inputs, err = s.lists.Tasks(ctx, req.TaskListID)
		if err != nil {
			return planInput{}, err
		}
	}
	if len(inputs) > s.cfg.MaxTasks {
		return planInput{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d tasks can be planned at once", s.cfg.MaxTasks))
	}
	tasks, err := toPlannerTasks(inputs)
	if err != nil {
		return planInput{}, err
	}

	input := planInput{window: window, tasks: tasks}
	if req.Seed != nil {
		input.seed = *req.Seed
		input.seeded = true
	} else {
		input.seed = time.Now().UnixNano()
	}
	return input, nil
}

func (s *PlannerService) resolveWindow(rawStart, rawEnd string) (planner.RunOptions, error) {
	opts := planner.RunOptions{DayStart: s.cfg.DayStart, DayEnd: s.cfg.DayEnd}
	if rawStart != "" {
		start, err := parseClock(rawStart)
		if err != nil {
			return opts, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("start %q must be HH:MM", rawStart))
		}
		opts.DayStart = start
	}
	if rawEnd != "" {
		end, err := parseClock(rawEnd)
		if err != nil {
			return opts, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("end %q must be HH:MM", rawEnd))
		}
		opts.DayEnd = end
	}
	if opts.DayEnd < opts.DayStart {
		return opts, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("end %s is before start %s", opts.DayEnd, opts.DayStart))
	}
	return opts, nil
}

// fingerprint identifies a seeded run so that identical requests share a cache entry.
func (s *PlannerService) fingerprint(strategy planner.Strategy, input planInput) string {
	payload, _ := json.Marshal(struct {
		Strategy planner.Strategy `json:"strategy"`
		Start    timeofday.Time   `json:"start"`
		End      timeofday.Time   `json:"end"`
		Seed     int64            `json:"seed"`
		Weights  string           `json:"weights"`
		Tasks    []planner.Task   `json:"tasks"`
	}{strategy, input.window.DayStart, input.window.DayEnd, input.seed, s.engine.Calculator().Weights().String(), input.tasks})
	sum := sha256.Sum256(payload)
	return planCachePrefix + hex.EncodeToString(sum[:])
}

// parseClock accepts concrete times only.
func parseClock(raw string) (timeofday.Time, error) {
	t, err := timeofday.Parse(raw)
	if err != nil {
		return 0, err
	}
	if !t.IsFixed() {
		return 0, timeofday.ErrInvalidTimeFormat
	}
	return t, nil
}

func toPlannerTasks(inputs []dto.TaskInput) ([]planner.Task, error) {
	tasks := make([]planner.Task, 0, len(inputs))
	for _, in := range inputs {
		scheduled := timeofday.Unscheduled
		if in.Scheduled != "" {
			t, err := timeofday.Parse(in.Scheduled)
			if err != nil {
				return nil, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("task %d: scheduled %q must be HH:MM", in.ID, in.Scheduled))
			}
			if t == timeofday.Midnight {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("task %d cannot start at 24:00", in.ID))
			}
			scheduled = t
		}
		status := in.Status
		if status == "" {
			status = "N"
		}
		tasks = append(tasks, planner.Task{
			ID:           in.ID,
			Description:  in.Description,
			Duration:     in.Duration,
			Dependencies: append([]int(nil), in.Dependencies...),
			Status:       status,
			Scheduled:    scheduled,
			Category:     planner.Category(in.Category),
		})
	}
	return tasks, nil
}

func toPlanResponse(plan *planner.Plan, tasks []planner.Task) *dto.PlanResponse {
	entries := make([]dto.PlanEntryResponse, 0, len(plan.Entries))
	placed := make(map[int]bool, len(plan.Entries)+len(plan.Overlaps)+len(plan.Dropped))
	for _, entry := range plan.Entries {
		deps := entry.Task.Dependencies
		if deps == nil {
			deps = []int{}
		}
		entries = append(entries, dto.PlanEntryResponse{
			TaskID:       entry.Task.ID,
			Description:  entry.Task.Description,
			Category:     string(entry.Task.Category),
			Duration:     entry.Task.Duration,
			Priority:     entry.Task.Priority,
			Fixed:        entry.Task.IsFixed(),
			Dependencies: deps,
			Start:        entry.Start.String(),
			End:          entry.End.String(),
		})
		placed[entry.Task.ID] = true
	}
	for _, id := range plan.Overlaps {
		placed[id] = true
	}
	for _, id := range plan.Dropped {
		placed[id] = true
	}
	unplaced := make([]int, 0)
	for _, task := range tasks {
		if !placed[task.ID] {
			unplaced = append(unplaced, task.ID)
		}
	}
	sort.Ints(unplaced)

	return &dto.PlanResponse{
		Strategy:       string(plan.Strategy),
		DayStart:       plan.DayStart.String(),
		DayEnd:         plan.DayEnd.String(),
		Entries:        entries,
		WorkMinutes:    plan.WorkMinutes,
		ElapsedMinutes: plan.ElapsedMinutes,
		Efficiency:     plan.Efficiency,
		Overlaps:       plan.Overlaps,
		Dropped:        plan.Dropped,
		Unplaced:       unplaced,
	}
}

func translatePlannerError(err error) error {
	var cyclic *planner.CyclicDependencyError
	var unknown *planner.UnknownDependencyError
	switch {
	case errors.As(err, &cyclic):
		return appErrors.Wrap(err, appErrors.ErrCyclicDependency.Code, appErrors.ErrCyclicDependency.Status, err.Error()).
			WithDetails(map[string]interface{}{"taskIds": cyclic.TaskIDs})
	case errors.As(err, &unknown):
		return appErrors.Wrap(err, appErrors.ErrUnknownDependency.Code, appErrors.ErrUnknownDependency.Status, err.Error()).
			WithDetails(map[string]interface{}{"taskId": unknown.TaskID, "dependencyId": unknown.DependencyID})
	case errors.Is(err, timeofday.ErrInvalidTimeFormat):
		return appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, err.Error())
	case errors.Is(err, planner.ErrInvalidTaskID),
		errors.Is(err, planner.ErrDuplicateTask),
		errors.Is(err, planner.ErrNegativeDuration),
		errors.Is(err, planner.ErrUnknownCategory),
		errors.Is(err, planner.ErrUnknownStrategy),
		errors.Is(err, planner.ErrInvalidWindow):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute plan")
	}
}

// --- Plan retention ---

type storedPlan struct {
	plan    dto.PlanResponse
	savedAt time.Time
}

type planStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]storedPlan
}

func newPlanStore(ttl time.Duration) *planStore {
	return &planStore{
		ttl:   ttl,
		items: make(map[string]storedPlan),
	}
}

func (s *planStore) Save(plan dto.PlanResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[plan.ID] = storedPlan{plan: plan, savedAt: time.Now()}
	s.purgeLocked()
}

func (s *planStore) Get(id string) (dto.PlanResponse, bool) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.PlanResponse{}, false
	}
	if time.Since(item.savedAt) > s.ttl {
		s.Delete(id)
		return dto.PlanResponse{}, false
	}
	return item.plan, true
}

func (s *planStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *planStore) purgeLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, item := range s.items {
		if item.savedAt.Before(cutoff) {
			delete(s.items, id)
		}
	}
}
