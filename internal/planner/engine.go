package planner

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// Strategy names a scheduling algorithm.
type Strategy string

const (
	StrategyGreedy   Strategy = "greedy"
	StrategyFiltered Strategy = "filtered"
	StrategyGapDP    Strategy = "gap_dp"
)

// Strategies lists the available algorithms.
var Strategies = []Strategy{StrategyGreedy, StrategyFiltered, StrategyGapDP}

// ParseStrategy validates a strategy name.
func ParseStrategy(raw string) (Strategy, error) {
	for _, s := range Strategies {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
}

// RunOptions carries the working window and the jitter source of one run.
type RunOptions struct {
	DayStart timeofday.Time
	DayEnd   timeofday.Time
	// Rand drives priority jitter. A nil source is seeded from the clock.
	Rand *rand.Rand
}

func (o RunOptions) validate() error {
	if !o.DayStart.IsFixed() || !o.DayEnd.IsFixed() {
		return fmt.Errorf("%w: start and end must be concrete times", ErrInvalidWindow)
	}
	if o.DayEnd < o.DayStart || o.DayEnd > timeofday.Midnight {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, o.DayStart, o.DayEnd)
	}
	return nil
}

func (o RunOptions) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Scheduler turns a task collection into a plan. Implementations never mutate the input.
type Scheduler interface {
	Schedule(tasks []Task, opts RunOptions) (*Plan, error)
}

// Engine dispatches runs to the configured strategies.
type Engine struct {
	calculator *PriorityCalculator
	schedulers map[Strategy]Scheduler
	logger     *zap.Logger
}

// NewEngine wires the three strategies around one priority calculator.
func NewEngine(weights CategoryWeights, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	calc := NewPriorityCalculator(weights)
	return &Engine{
		calculator: calc,
		schedulers: map[Strategy]Scheduler{
			StrategyGreedy:   NewGreedyScheduler(calc, logger),
			StrategyFiltered: NewFilteredScheduler(calc, logger),
			StrategyGapDP:    NewGapScheduler(calc, logger),
		},
		logger: logger,
	}
}

// Calculator returns the shared priority calculator.
func (e *Engine) Calculator() *PriorityCalculator {
	return e.calculator
}

// Run schedules tasks with the named strategy.
func (e *Engine) Run(strategy Strategy, tasks []Task, opts RunOptions) (*Plan, error) {
	scheduler, ok := e.schedulers[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	started := time.Now()
	plan, err := scheduler.Schedule(tasks, opts)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("plan computed",
		zap.String("strategy", string(strategy)),
		zap.Int("tasks", len(tasks)),
		zap.Int("entries", len(plan.Entries)),
		zap.Float64("efficiency", plan.Efficiency),
		zap.Duration("took", time.Since(started)),
	)
	return plan, nil
}
