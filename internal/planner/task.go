package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

var (
	// ErrInvalidTaskID is returned for ids below 1.
	ErrInvalidTaskID = errors.New("task id must be positive")
	// ErrDuplicateTask is returned when two tasks share an id.
	ErrDuplicateTask = errors.New("duplicate task id")
	// ErrNegativeDuration is returned for durations below zero.
	ErrNegativeDuration = errors.New("task duration must not be negative")
	// ErrUnknownCategory is returned for categories without a weight.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidWeights is returned when a category weight table is incomplete or malformed.
	ErrInvalidWeights = errors.New("invalid category weights")
	// ErrUnknownStrategy is returned for strategy names the engine does not know.
	ErrUnknownStrategy = errors.New("unknown scheduling strategy")
	// ErrInvalidWindow is returned when the working day is unset or ends before it starts.
	ErrInvalidWindow = errors.New("invalid working window")
)

// CyclicDependencyError reports tasks that sit on or behind a dependency cycle.
type CyclicDependencyError struct {
	TaskIDs []int
}

func (e *CyclicDependencyError) Error() string {
	ids := make([]string, len(e.TaskIDs))
	for i, id := range e.TaskIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("cyclic dependency between tasks [%s]", strings.Join(ids, ", "))
}

// UnknownDependencyError reports a dependency on an id absent from the task set.
type UnknownDependencyError struct {
	TaskID       int
	DependencyID int
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %d depends on unknown task %d", e.TaskID, e.DependencyID)
}

// Task is a unit of work to place on the day's timeline.
type Task struct {
	ID           int
	Description  string
	Duration     int
	Dependencies []int
	Status       string
	Scheduled    timeofday.Time
	Category     Category
	Priority     float64
}

// IsFixed reports whether the task has a fixed start time.
func (t Task) IsFixed() bool {
	return t.Scheduled.IsFixed()
}

// End returns the fixed end of a fixed task.
func (t Task) End() timeofday.Time {
	return t.Scheduled.Add(t.Duration)
}

// Clone returns a copy that shares no slices with t. Duplicate dependency ids are collapsed.
func (t Task) Clone() Task {
	out := t
	out.Dependencies = make([]int, 0, len(t.Dependencies))
	seen := make(map[int]struct{}, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out.Dependencies = append(out.Dependencies, dep)
	}
	return out
}

// Entry is a task placed on the timeline.
type Entry struct {
	Task  Task
	Start timeofday.Time
	End   timeofday.Time
}

// Plan is the outcome of a scheduling run.
type Plan struct {
	Strategy       Strategy
	DayStart       timeofday.Time
	DayEnd         timeofday.Time
	Entries        []Entry
	WorkMinutes    int
	ElapsedMinutes int
	Efficiency     float64
	// Overlaps lists fixed tasks whose start had already passed or that collided with an earlier fixed task.
	Overlaps []int
	// Dropped lists tasks removed by the feasibility filter.
	Dropped []int
}

// taskSet is a per-run deep copy of the input indexed by id.
type taskSet struct {
	tasks []*Task
	byID  map[int]*Task
}

// newTaskSet copies and validates the input. It rejects non-positive or duplicate ids,
// negative durations, unknown categories, unknown dependencies and cycles.
func newTaskSet(input []Task) (*taskSet, error) {
	set := &taskSet{
		tasks: make([]*Task, 0, len(input)),
		byID:  make(map[int]*Task, len(input)),
	}
	for _, raw := range input {
		if raw.ID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTaskID, raw.ID)
		}
		if _, exists := set.byID[raw.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTask, raw.ID)
		}
		if raw.Duration < 0 {
			return nil, fmt.Errorf("%w: task %d has %d", ErrNegativeDuration, raw.ID, raw.Duration)
		}
		task := raw.Clone()
		category, err := ParseCategory(string(task.Category))
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", task.ID, err)
		}
		task.Category = category
		task.Priority = 0
		set.tasks = append(set.tasks, &task)
		set.byID[task.ID] = &task
	}
	for _, task := range set.tasks {
		for _, dep := range task.Dependencies {
			if _, ok := set.byID[dep]; !ok {
				return nil, &UnknownDependencyError{TaskID: task.ID, DependencyID: dep}
			}
		}
	}
	if err := set.checkAcyclic(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate applies the ingestion rules of a scheduling run without scheduling.
func Validate(tasks []Task) error {
	_, err := newTaskSet(tasks)
	return err
}

// checkAcyclic runs Kahn's algorithm over dependency edges.
func (s *taskSet) checkAcyclic() error {
	pending := make(map[int]int, len(s.tasks))
	dependents := make(map[int][]int, len(s.tasks))
	for _, task := range s.tasks {
		pending[task.ID] = len(task.Dependencies)
		for _, dep := range task.Dependencies {
			dependents[dep] = append(dependents[dep], task.ID)
		}
	}
	ready := make([]int, 0, len(s.tasks))
	for _, task := range s.tasks {
		if pending[task.ID] == 0 {
			ready = append(ready, task.ID)
		}
	}
	visited := 0
	for len(ready) > 0 {
		id := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		visited++
		for _, next := range dependents[id] {
			pending[next]--
			if pending[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if visited == len(s.tasks) {
		return nil
	}
	stuck := make([]int, 0, len(s.tasks)-visited)
	for id, n := range pending {
		if n > 0 {
			stuck = append(stuck, id)
		}
	}
	sort.Ints(stuck)
	return &CyclicDependencyError{TaskIDs: stuck}
}

// subset keeps only the given tasks, preserving input order.
func (s *taskSet) subset(keep map[int]bool) *taskSet {
	out := &taskSet{
		tasks: make([]*Task, 0, len(keep)),
		byID:  make(map[int]*Task, len(keep)),
	}
	for _, task := range s.tasks {
		if keep[task.ID] {
			out.tasks = append(out.tasks, task)
			out.byID[task.ID] = task
		}
	}
	return out
}

// dependencyMinutes sums the durations of every distinct transitive dependency of task.
func (s *taskSet) dependencyMinutes(task *Task) int {
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
		dep, ok := s.byID[id]
		if !ok {
			continue
		}
		total += dep.Duration
		stack = append(stack, dep.Dependencies...)
	}
	return total
}
