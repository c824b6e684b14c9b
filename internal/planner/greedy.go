package planner

import (
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/pkg/pqueue"
)

// GreedyScheduler pops tasks by priority and, while waiting for a fixed task,
// fills the idle time one best-fitting flexible task at a time.
type GreedyScheduler struct {
	calc   *PriorityCalculator
	logger *zap.Logger
}

// NewGreedyScheduler constructs the scheduler.
func NewGreedyScheduler(calc *PriorityCalculator, logger *zap.Logger) *GreedyScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GreedyScheduler{calc: calc, logger: logger}
}

// Schedule implements Scheduler. Tasks that would end after DayEnd are left off the plan.
func (s *GreedyScheduler) Schedule(tasks []Task, opts RunOptions) (*Plan, error) {
	set, err := prepare(tasks, opts)
	if err != nil {
		return nil, err
	}
	s.calc.assign(set, opts.rng())

	queue, err := buildQueue(set)
	if err != nil {
		return nil, err
	}

	tl := newTimeline(opts.DayStart, opts.DayEnd, len(set.tasks))
	overlaps := make([]int, 0)
	for queue.Len() > 0 {
		item, err := queue.ExtractMax()
		if err != nil {
			return nil, err
		}
		task := set.byID[item.ID]
		if task.IsFixed() {
			if task.Scheduled.Before(tl.now) {
				reportOverlap(s.logger, StrategyGreedy, task, tl.now)
				overlaps = append(overlaps, task.ID)
				continue
			}
			if task.End() > opts.DayEnd {
				reportPastDayEnd(s.logger, StrategyGreedy, task, tl.now)
				continue
			}
			if err := s.fillGap(set, queue, tl, task); err != nil {
				return nil, err
			}
			tl.waitUntil(task.Scheduled)
		} else if !tl.fits(task) {
			reportPastDayEnd(s.logger, StrategyGreedy, task, tl.now)
			continue
		}
		tl.execute(task)
	}

	return newPlan(StrategyGreedy, opts, tl.entries, tl.work, tl.elapsed(), overlaps, nil), nil
}

func (s *GreedyScheduler) fillGap(set *taskSet, queue *pqueue.MaxQueue, tl *timeline, waiting *Task) error {
	for gap := waiting.Scheduled.Sub(tl.now); gap > 0; gap = waiting.Scheduled.Sub(tl.now) {
		candidates := pqueue.New(queue.Len())
		for _, task := range set.tasks {
			if task.IsFixed() || task.Duration > gap || !queue.Contains(task.ID) {
				continue
			}
			if !dependenciesCleared(task, queue, waiting.ID) {
				continue
			}
			if err := candidates.Insert(task.ID, task.Priority); err != nil {
				return err
			}
		}

		best, err := candidates.ExtractMax()
		if errors.Is(err, pqueue.ErrEmptyQueue) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := queue.RemoveID(best.ID); err != nil {
			return err
		}
		tl.execute(set.byID[best.ID])
	}
	return nil
}
