package planner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/pkg/pqueue"
	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// prepare validates the window and takes a private copy of the tasks.
func prepare(tasks []Task, opts RunOptions) (*taskSet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return newTaskSet(tasks)
}

// buildQueue loads every task priority into a fresh max queue.
func buildQueue(set *taskSet) (*pqueue.MaxQueue, error) {
	queue := pqueue.New(len(set.tasks))
	for _, task := range set.tasks {
		if err := queue.Insert(task.ID, task.Priority); err != nil {
			return nil, fmt.Errorf("queue task %d: %w", task.ID, err)
		}
	}
	return queue, nil
}

// dependenciesCleared reports whether no prerequisite of task is still queued
// or is the fixed task currently being waited for.
func dependenciesCleared(task *Task, queue *pqueue.MaxQueue, waitingID int) bool {
	for _, dep := range task.Dependencies {
		if dep == waitingID || queue.Contains(dep) {
			return false
		}
	}
	return true
}

func reportPastDayEnd(logger *zap.Logger, strategy Strategy, task *Task, now timeofday.Time) {
	logger.Warn("task past day end",
		zap.String("strategy", string(strategy)),
		zap.Int("task_id", task.ID),
		zap.Int("duration", task.Duration),
		zap.String("now", now.String()),
	)
}

func reportOverlap(logger *zap.Logger, strategy Strategy, task *Task, now timeofday.Time) {
	logger.Warn("schedule overlap",
		zap.String("strategy", string(strategy)),
		zap.Int("task_id", task.ID),
		zap.String("description", task.Description),
		zap.String("scheduled", task.Scheduled.String()),
		zap.String("now", now.String()),
	)
}

func reportDropped(logger *zap.Logger, strategy Strategy, dropped []int) {
	if len(dropped) == 0 {
		return
	}
	logger.Info("infeasible tasks dropped",
		zap.String("strategy", string(strategy)),
		zap.Ints("task_ids", dropped),
	)
}

func newPlan(strategy Strategy, opts RunOptions, entries []Entry, work, elapsed int, overlaps, dropped []int) *Plan {
	if entries == nil {
		entries = []Entry{}
	}
	if overlaps == nil {
		overlaps = []int{}
	}
	if dropped == nil {
		dropped = []int{}
	}
	return &Plan{
		Strategy:       strategy,
		DayStart:       opts.DayStart,
		DayEnd:         opts.DayEnd,
		Entries:        entries,
		WorkMinutes:    work,
		ElapsedMinutes: elapsed,
		Efficiency:     efficiency(work, elapsed),
		Overlaps:       overlaps,
		Dropped:        dropped,
	}
}
