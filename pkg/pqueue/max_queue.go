package pqueue

import "errors"

var (
	// ErrEmptyQueue is returned when reading from an empty queue.
	ErrEmptyQueue = errors.New("priority queue is empty")
	// ErrInvalidKey is returned when increase-key would lower a key or the index is out of range.
	ErrInvalidKey = errors.New("new key is smaller than current key")
	// ErrKeyNotFound is returned when a removal target is not queued.
	ErrKeyNotFound = errors.New("key not found in priority queue")
	// ErrDuplicateID is returned when an id is inserted twice.
	ErrDuplicateID = errors.New("id already queued")
)

// Item is a queued id with its ordering key.
type Item struct {
	ID  int
	Key float64
}

// MaxQueue is an array-backed binary max-heap. An id to index map is kept in
// sync on every swap so entries can be removed by id in O(log n).
type MaxQueue struct {
	items []Item
	pos   map[int]int
}

// New returns an empty queue with room for capacity items.
func New(capacity int) *MaxQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &MaxQueue{
		items: make([]Item, 0, capacity),
		pos:   make(map[int]int, capacity),
	}
}

// Len returns the number of queued items.
func (q *MaxQueue) Len() int {
	return len(q.items)
}

// Contains reports whether the id is queued.
func (q *MaxQueue) Contains(id int) bool {
	_, ok := q.pos[id]
	return ok
}

// Key returns the key stored for id.
func (q *MaxQueue) Key(id int) (float64, bool) {
	idx, ok := q.pos[id]
	if !ok {
		return 0, false
	}
	return q.items[idx].Key, true
}

// Items returns a copy of the heap array in heap order.
func (q *MaxQueue) Items() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

// Insert appends the item as a leaf and restores heap order.
func (q *MaxQueue) Insert(id int, key float64) error {
	if _, exists := q.pos[id]; exists {
		return ErrDuplicateID
	}
	q.items = append(q.items, Item{ID: id, Key: key})
	idx := len(q.items) - 1
	q.pos[id] = idx
	q.up(idx)
	return nil
}

// Peek returns the item with the largest key without removing it.
func (q *MaxQueue) Peek() (Item, error) {
	if len(q.items) == 0 {
		return Item{}, ErrEmptyQueue
	}
	return q.items[0], nil
}

// ExtractMax removes and returns the item with the largest key.
func (q *MaxQueue) ExtractMax() (Item, error) {
	if len(q.items) == 0 {
		return Item{}, ErrEmptyQueue
	}
	return q.removeAt(0), nil
}

// IncreaseKey raises the key stored at index and bubbles it up.
func (q *MaxQueue) IncreaseKey(index int, key float64) error {
	if index < 0 || index >= len(q.items) {
		return ErrInvalidKey
	}
	if key < q.items[index].Key {
		return ErrInvalidKey
	}
	q.items[index].Key = key
	q.up(index)
	return nil
}

// Remove deletes the first item whose key equals key. The scan is linear, so
// callers should keep keys unique.
func (q *MaxQueue) Remove(key float64) error {
	for idx := range q.items {
		if q.items[idx].Key == key {
			q.removeAt(idx)
			return nil
		}
	}
	return ErrKeyNotFound
}

// RemoveID deletes the item queued under id.
func (q *MaxQueue) RemoveID(id int) error {
	idx, ok := q.pos[id]
	if !ok {
		return ErrKeyNotFound
	}
	q.removeAt(idx)
	return nil
}

func (q *MaxQueue) removeAt(idx int) Item {
	last := len(q.items) - 1
	removed := q.items[idx]
	q.swap(idx, last)
	q.items = q.items[:last]
	delete(q.pos, removed.ID)
	if idx < len(q.items) {
		if !q.down(idx) {
			q.up(idx)
		}
	}
	return removed
}

func (q *MaxQueue) up(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if q.items[parent].Key >= q.items[idx].Key {
			return
		}
		q.swap(idx, parent)
		idx = parent
	}
}

// down sifts idx toward the leaves and reports whether it moved.
func (q *MaxQueue) down(idx int) bool {
	start := idx
	n := len(q.items)
	for {
		left := 2*idx + 1
		if left >= n {
			break
		}
		largest := left
		if right := left + 1; right < n && q.items[right].Key > q.items[left].Key {
			largest = right
		}
		if q.items[largest].Key <= q.items[idx].Key {
			break
		}
		q.swap(idx, largest)
		idx = largest
	}
	return idx > start
}

func (q *MaxQueue) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.pos[q.items[i].ID] = i
	q.pos[q.items[j].ID] = j
}
