package planner

import (
	"math"

	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// NoEfficiency is reported when no time elapsed.
const NoEfficiency = -1.0

// timeline is the cursor-driven execution log shared by the queue based schedulers.
type timeline struct {
	start   timeofday.Time
	end     timeofday.Time
	now     timeofday.Time
	entries []Entry
	work    int
}

func newTimeline(start, end timeofday.Time, capacity int) *timeline {
	return &timeline{start: start, end: end, now: start, entries: make([]Entry, 0, capacity)}
}

// fits reports whether task, started at the cursor, ends by the day end.
func (tl *timeline) fits(task *Task) bool {
	return tl.now.Add(task.Duration) <= tl.end
}

// execute places task at the cursor and advances it by the task's duration.
func (tl *timeline) execute(task *Task) {
	end := tl.now.Add(task.Duration)
	tl.entries = append(tl.entries, Entry{Task: task.Clone(), Start: tl.now, End: end})
	tl.now = end
	tl.work += task.Duration
}

// waitUntil moves the cursor forward to at; it never moves backward.
func (tl *timeline) waitUntil(at timeofday.Time) {
	if at > tl.now {
		tl.now = at
	}
}

func (tl *timeline) elapsed() int {
	return tl.now.Sub(tl.start)
}

// efficiency is work over elapsed minutes as a percentage rounded to two decimals.
func efficiency(work, elapsed int) float64 {
	if elapsed == 0 {
		return NoEfficiency
	}
	return math.Round(float64(work)/float64(elapsed)*100*100) / 100
}
