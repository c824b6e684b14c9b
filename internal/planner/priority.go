package planner

import (
	"math/rand"
	"time"

	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// dependencyBonus is added per hop when escalating a prerequisite.
const dependencyBonus = 100

// PriorityCalculator ranks tasks by fixed-time urgency, category weight and dependency depth.
type PriorityCalculator struct {
	weights CategoryWeights
}

// NewPriorityCalculator builds a calculator over the given weight table.
func NewPriorityCalculator(weights CategoryWeights) *PriorityCalculator {
	return &PriorityCalculator{weights: weights}
}

// Weights exposes the configured table.
func (c *PriorityCalculator) Weights() CategoryWeights {
	return c.weights
}

// Assign validates tasks, writes their priorities and returns the annotated copies.
// The input slice is left untouched.
func (c *PriorityCalculator) Assign(tasks []Task, rng *rand.Rand) ([]Task, error) {
	set, err := newTaskSet(tasks)
	if err != nil {
		return nil, err
	}
	c.assign(set, rng)
	out := make([]Task, len(set.tasks))
	for i, task := range set.tasks {
		out[i] = *task
	}
	return out, nil
}

func (c *PriorityCalculator) assign(set *taskSet, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	for _, task := range set.tasks {
		task.Priority = 0
	}
	for _, task := range set.tasks {
		if task.IsFixed() {
			// seconds left until midnight: earlier starts rank higher
			base := float64(timeofday.Midnight.Sub(task.Scheduled) * 60)
			if base > task.Priority {
				task.Priority = base
			}
		}
		task.Priority += float64(c.weights.Weight(task.Category))
		c.escalate(set, task.Dependencies, task.Priority+dependencyBonus)
	}
	c.jitter(set, rng)
}

type escalation struct {
	id    int
	value float64
}

// escalate raises every transitive prerequisite to at least value plus one bonus
// per extra hop. The graph is acyclic by construction of the task set.
func (c *PriorityCalculator) escalate(set *taskSet, deps []int, value float64) {
	stack := make([]escalation, 0, len(deps))
	for _, id := range deps {
		stack = append(stack, escalation{id: id, value: value})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dep, ok := set.byID[top.id]
		if !ok || dep.Priority >= top.value {
			continue
		}
		dep.Priority = top.value
		for _, next := range dep.Dependencies {
			stack = append(stack, escalation{id: next, value: top.value + dependencyBonus})
		}
	}
}

// jitter adds a draw from [0,1) to each priority, redrawing on collision so
// that every task ends up with a distinct key.
func (c *PriorityCalculator) jitter(set *taskSet, rng *rand.Rand) {
	used := make(map[float64]struct{}, len(set.tasks))
	for _, task := range set.tasks {
		candidate := task.Priority + rng.Float64()
		for {
			if _, taken := used[candidate]; !taken {
				break
			}
			candidate = task.Priority + rng.Float64()
		}
		task.Priority = candidate
		used[candidate] = struct{}{}
	}
}
