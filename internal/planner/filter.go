package planner

import (
	"sort"

	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// filterFeasible drops tasks that cannot be honoured inside [dayStart, dayEnd]:
// tasks shorter than a minute, fixed tasks whose window leaves the day, and fixed
// tasks whose prerequisites cannot finish before they start. Tasks depending on a
// dropped task are dropped as well. Dropped ids come back sorted.
func filterFeasible(set *taskSet, dayStart, dayEnd timeofday.Time) (*taskSet, []int) {
	keep := make(map[int]bool, len(set.tasks))
	for _, task := range set.tasks {
		keep[task.ID] = feasible(set, task, dayStart, dayEnd)
	}

	for changed := true; changed; {
		changed = false
		for _, task := range set.tasks {
			if !keep[task.ID] {
				continue
			}
			for _, dep := range task.Dependencies {
				if !keep[dep] {
					keep[task.ID] = false
					changed = true
					break
				}
			}
		}
	}

	dropped := make([]int, 0)
	for _, task := range set.tasks {
		if !keep[task.ID] {
			dropped = append(dropped, task.ID)
		}
	}
	sort.Ints(dropped)
	return set.subset(keep), dropped
}

func feasible(set *taskSet, task *Task, dayStart, dayEnd timeofday.Time) bool {
	if task.Duration < 1 {
		return false
	}
	if !task.IsFixed() {
		return true
	}
	if task.Scheduled.Before(dayStart) || task.End() > dayEnd {
		return false
	}
	return set.dependencyMinutes(task) <= task.Scheduled.Sub(dayStart)
}
