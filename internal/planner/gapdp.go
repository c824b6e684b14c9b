package planner

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/pkg/knapsack"
	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// GapScheduler lays out fixed tasks first, computes every idle gap of the day
// and fills each gap with repeated knapsack selections.
type GapScheduler struct {
	calc   *PriorityCalculator
	logger *zap.Logger
}

// NewGapScheduler constructs the scheduler.
func NewGapScheduler(calc *PriorityCalculator, logger *zap.Logger) *GapScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GapScheduler{calc: calc, logger: logger}
}

// Gap is an idle interval between the day bounds and fixed tasks.
type Gap struct {
	Start timeofday.Time
	End   timeofday.Time
}

// Minutes returns the length of the gap.
func (g Gap) Minutes() int {
	return g.End.Sub(g.Start)
}

// Schedule implements Scheduler.
func (s *GapScheduler) Schedule(tasks []Task, opts RunOptions) (*Plan, error) {
	set, err := prepare(tasks, opts)
	if err != nil {
		return nil, err
	}
	set, dropped := filterFeasible(set, opts.DayStart, opts.DayEnd)
	reportDropped(s.logger, StrategyGapDP, dropped)
	s.calc.assign(set, opts.rng())

	fixed, flexible := partition(set)
	fixed, overlaps := s.dropOverlaps(fixed)
	gaps := FindGaps(fixedWindows(fixed), opts.DayStart, opts.DayEnd)

	entries := make([]Entry, 0, len(set.tasks))
	// Skipped fixed tasks count as resolved so their dependents are not blocked.
	resolved := make(map[int]bool, len(set.tasks))
	for _, id := range overlaps {
		resolved[id] = true
	}
	placeFixed := func(upTo timeofday.Time, all bool) {
		for _, task := range fixed {
			if resolved[task.ID] || (!all && task.End() > upTo) {
				continue
			}
			resolved[task.ID] = true
			if dep, ok := firstUnresolved(task, resolved); ok {
				s.logger.Warn("fixed task skipped, prerequisite not scheduled before it",
					zap.String("strategy", string(StrategyGapDP)),
					zap.Int("task_id", task.ID),
					zap.Int("dependency_id", dep),
					zap.String("scheduled", task.Scheduled.String()),
				)
				overlaps = append(overlaps, task.ID)
				continue
			}
			entries = append(entries, Entry{Task: task.Clone(), Start: task.Scheduled, End: task.End()})
		}
	}

	for _, gap := range gaps {
		placeFixed(gap.Start, false)
		cursor := gap.Start
		for remaining := gap.End.Sub(cursor); remaining > 0; remaining = gap.End.Sub(cursor) {
			selected, err := s.selectForGap(flexible, resolved, remaining)
			if err != nil {
				return nil, err
			}
			if len(selected) == 0 {
				break
			}
			for _, task := range selected {
				end := cursor.Add(task.Duration)
				entries = append(entries, Entry{Task: task.Clone(), Start: cursor, End: end})
				resolved[task.ID] = true
				cursor = end
			}
		}
	}
	placeFixed(opts.DayEnd, true)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start < entries[j].Start
	})

	work := 0
	latest := opts.DayStart
	for _, entry := range entries {
		work += entry.Task.Duration
		if entry.End > latest {
			latest = entry.End
		}
	}

	return newPlan(StrategyGapDP, opts, entries, work, latest.Sub(opts.DayStart), overlaps, dropped), nil
}

// selectForGap picks, by knapsack over priorities, the flexible tasks that fit in
// capacity minutes and whose prerequisites are complete. The result is ordered
// by descending priority.
func (s *GapScheduler) selectForGap(flexible []*Task, completed map[int]bool, capacity int) ([]*Task, error) {
	candidates := make([]*Task, 0)
	for _, task := range flexible {
		if completed[task.ID] || task.Duration > capacity {
			continue
		}
		if _, blocked := firstUnresolved(task, completed); !blocked {
			candidates = append(candidates, task)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	weights := make([]int, len(candidates))
	values := make([]float64, len(candidates))
	for i, task := range candidates {
		weights[i] = task.Duration
		values[i] = task.Priority
	}
	result, err := knapsack.Solve(weights, values, capacity)
	if err != nil {
		return nil, err
	}

	selected := make([]*Task, 0, len(result.Selected))
	for _, idx := range result.Selected {
		selected = append(selected, candidates[idx])
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority > selected[j].Priority
	})
	return selected, nil
}

// dropOverlaps removes fixed tasks that start before an earlier kept fixed task ends
// and returns their ids in start order.
func (s *GapScheduler) dropOverlaps(fixed []*Task) (kept []*Task, overlaps []int) {
	overlaps = make([]int, 0)
	kept = make([]*Task, 0, len(fixed))
	var latest timeofday.Time
	for _, task := range fixed {
		if len(kept) > 0 && task.Scheduled.Before(latest) {
			reportOverlap(s.logger, StrategyGapDP, task, latest)
			overlaps = append(overlaps, task.ID)
			continue
		}
		kept = append(kept, task)
		latest = task.End()
	}
	return kept, overlaps
}

func firstUnresolved(task *Task, resolved map[int]bool) (int, bool) {
	for _, dep := range task.Dependencies {
		if !resolved[dep] {
			return dep, true
		}
	}
	return 0, false
}

// partition splits tasks into fixed ones sorted by start and flexible ones in input order.
func partition(set *taskSet) (fixed, flexible []*Task) {
	for _, task := range set.tasks {
		if task.IsFixed() {
			fixed = append(fixed, task)
		} else {
			flexible = append(flexible, task)
		}
	}
	sort.SliceStable(fixed, func(i, j int) bool {
		return fixed[i].Scheduled < fixed[j].Scheduled
	})
	return fixed, flexible
}

func fixedWindows(fixed []*Task) []Gap {
	windows := make([]Gap, len(fixed))
	for i, task := range fixed {
		windows[i] = Gap{Start: task.Scheduled, End: task.End()}
	}
	return windows
}

// FindGaps returns the idle intervals of [dayStart, dayEnd] around busy windows
// sorted by start. Windows that run past the next one's start extend the busy span.
func FindGaps(busy []Gap, dayStart, dayEnd timeofday.Time) []Gap {
	gaps := make([]Gap, 0, len(busy)+1)
	if len(busy) == 0 {
		if dayEnd > dayStart {
			gaps = append(gaps, Gap{Start: dayStart, End: dayEnd})
		}
		return gaps
	}
	if busy[0].Start > dayStart {
		gaps = append(gaps, Gap{Start: dayStart, End: busy[0].Start})
	}
	currentEnd := busy[0].End
	for _, window := range busy[1:] {
		if currentEnd < window.Start {
			gaps = append(gaps, Gap{Start: currentEnd, End: window.Start})
		}
		if window.End > currentEnd {
			currentEnd = window.End
		}
	}
	if currentEnd < dayEnd {
		gaps = append(gaps, Gap{Start: currentEnd, End: dayEnd})
	}
	return gaps
}
