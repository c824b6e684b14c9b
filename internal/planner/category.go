package planner

import (
	"fmt"
	"strconv"
	"strings"
)

// Category groups tasks by the area of life they belong to.
type Category string

const (
	CategoryRoutine Category = "Routine"
	CategoryFamily  Category = "Family"
	CategoryGrowth  Category = "Growth"
	CategoryFriends Category = "Friends"
	CategoryHobby   Category = "Hobby"
	CategoryOther   Category = "Other"
)

// Categories lists every supported category in display order.
var Categories = []Category{CategoryRoutine, CategoryFamily, CategoryGrowth, CategoryFriends, CategoryHobby, CategoryOther}

// ParseCategory resolves a category name case-insensitively. An empty name means Other.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryOther, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), raw) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

// CategoryWeights is a read-only category to priority bonus table.
type CategoryWeights struct {
	values map[Category]int
}

// DefaultCategoryWeights returns the stock weight table.
func DefaultCategoryWeights() CategoryWeights {
	w, _ := NewCategoryWeights(map[Category]int{
		CategoryRoutine: 20,
		CategoryFamily:  15,
		CategoryGrowth:  15,
		CategoryFriends: 10,
		CategoryHobby:   5,
		CategoryOther:   0,
	})
	return w
}

// NewCategoryWeights validates that values covers exactly the six categories.
func NewCategoryWeights(values map[Category]int) (CategoryWeights, error) {
	if len(values) != len(Categories) {
		return CategoryWeights{}, fmt.Errorf("%w: expected %d categories, got %d", ErrInvalidWeights, len(Categories), len(values))
	}
	copied := make(map[Category]int, len(values))
	for _, c := range Categories {
		v, ok := values[c]
		if !ok {
			return CategoryWeights{}, fmt.Errorf("%w: missing %s", ErrInvalidWeights, c)
		}
		copied[c] = v
	}
	return CategoryWeights{values: copied}, nil
}

// ParseCategoryWeights reads "Routine=20,Family=15,..." and overlays it on the defaults.
// An empty string yields the defaults.
func ParseCategoryWeights(raw string) (CategoryWeights, error) {
	values := DefaultCategoryWeights().Map()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewCategoryWeights(values)
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, rawValue, ok := strings.Cut(pair, "=")
		if !ok {
			return CategoryWeights{}, fmt.Errorf("%w: malformed pair %q", ErrInvalidWeights, pair)
		}
		category, err := ParseCategory(name)
		if err != nil || strings.TrimSpace(name) == "" {
			return CategoryWeights{}, fmt.Errorf("%w: unknown category %q", ErrInvalidWeights, name)
		}
		value, err := strconv.Atoi(strings.TrimSpace(rawValue))
		if err != nil {
			return CategoryWeights{}, fmt.Errorf("%w: weight for %s: %v", ErrInvalidWeights, category, err)
		}
		values[category] = value
	}
	return NewCategoryWeights(values)
}

// Weight returns the bonus for c. Unknown categories weigh nothing.
func (w CategoryWeights) Weight(c Category) int {
	return w.values[c]
}

// Map returns a copy of the table.
func (w CategoryWeights) Map() map[Category]int {
	out := make(map[Category]int, len(w.values))
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

// String renders the table in the same form ParseCategoryWeights accepts.
func (w CategoryWeights) String() string {
	parts := make([]string, 0, len(w.values))
	for _, c := range Categories {
		parts = append(parts, fmt.Sprintf("%s=%d", c, w.values[c]))
	}
	return strings.Join(parts, ",")
}
