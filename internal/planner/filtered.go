package planner

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/pkg/knapsack"
	"github.com/noah-isme/dayplan-api/pkg/pqueue"
)

// FilteredScheduler drops infeasible tasks up front and fills each idle gap
// before a fixed task with a single knapsack selection.
type FilteredScheduler struct {
	calc   *PriorityCalculator
	logger *zap.Logger
}

// NewFilteredScheduler constructs the scheduler.
func NewFilteredScheduler(calc *PriorityCalculator, logger *zap.Logger) *FilteredScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilteredScheduler{calc: calc, logger: logger}
}

// Schedule implements Scheduler.
func (s *FilteredScheduler) Schedule(tasks []Task, opts RunOptions) (*Plan, error) {
	set, err := prepare(tasks, opts)
	if err != nil {
		return nil, err
	}
	set, dropped := filterFeasible(set, opts.DayStart, opts.DayEnd)
	reportDropped(s.logger, StrategyFiltered, dropped)
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
				reportOverlap(s.logger, StrategyFiltered, task, tl.now)
				overlaps = append(overlaps, task.ID)
				continue
			}
			if task.End() > opts.DayEnd {
				reportPastDayEnd(s.logger, StrategyFiltered, task, tl.now)
				continue
			}
			if err := s.fillGap(set, queue, tl, task); err != nil {
				return nil, err
			}
			tl.waitUntil(task.Scheduled)
		} else if !tl.fits(task) {
			reportPastDayEnd(s.logger, StrategyFiltered, task, tl.now)
			continue
		}
		tl.execute(task)
	}

	return newPlan(StrategyFiltered, opts, tl.entries, tl.work, tl.elapsed(), overlaps, dropped), nil
}

func (s *FilteredScheduler) fillGap(set *taskSet, queue *pqueue.MaxQueue, tl *timeline, waiting *Task) error {
	gap := waiting.Scheduled.Sub(tl.now)
	if gap <= 0 {
		return nil
	}

	candidates := make([]*Task, 0)
	for _, task := range set.tasks {
		if task.IsFixed() || task.Duration > gap || !queue.Contains(task.ID) {
			continue
		}
		chain, ok := pendingChainMinutes(set, queue, task, waiting.ID)
		if !ok || task.Duration+chain > gap {
			continue
		}
		candidates = append(candidates, task)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	weights := make([]int, len(candidates))
	values := make([]float64, len(candidates))
	for i, task := range candidates {
		weights[i] = task.Duration
		values[i] = task.Priority
	}
	result, err := knapsack.Solve(weights, values, gap)
	if err != nil {
		return err
	}

	// candidates are in descending priority, so ascending indices run prerequisites first
	for _, idx := range result.Selected {
		task := candidates[idx]
		if !dependenciesCleared(task, queue, waiting.ID) {
			s.logger.Debug("gap selection deferred",
				zap.Int("task_id", task.ID),
				zap.String("before", waiting.Scheduled.String()),
			)
			continue
		}
		if err := queue.RemoveID(task.ID); err != nil {
			return err
		}
		tl.execute(task)
	}
	return nil
}

// pendingChainMinutes sums the durations of the not yet executed prerequisites of
// task. It reports false when that chain contains a fixed task, including the one
// currently being waited for, since such a chain cannot complete inside the gap.
func pendingChainMinutes(set *taskSet, queue *pqueue.MaxQueue, task *Task, waitingID int) (int, bool) {
	total := 0
	visited := make(map[int]bool)
	stack := append([]int(nil), task.Dependencies...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		if id == waitingID {
			return 0, false
		}
		if !queue.Contains(id) {
			continue
		}
		dep := set.byID[id]
		if dep.IsFixed() {
			return 0, false
		}
		total += dep.Duration
		stack = append(stack, dep.Dependencies...)
	}
	return total, true
}
