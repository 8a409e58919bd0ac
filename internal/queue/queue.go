// package queue sequences playback over the visible track list
package queue

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/novadrive/internal/models"
)

// Queue holds the base track list, an optional shuffle order, and the repeat mode.
//
// The shuffle order is a permutation of indices into the base list, so it always
// contains exactly the base tracks.
type Queue struct {
	mu      sync.RWMutex
	key     string
	base    []models.Track
	order   []int
	shuffle bool
	repeat  models.RepeatMode
	rng     *rand.Rand
}

// New creates an empty queue. A nil rng is seeded from the clock.
func New(rng *rand.Rand) *Queue {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Queue{rng: rng}
}

// SetBase replaces the base list. key identifies where the list came from (view, search).
//
// With shuffle on, a new key reshuffles. The same key keeps the previous shuffled order for
// tracks that survive and appends new tracks in random order.
func (q *Queue) SetBase(key string, tracks []models.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev := q.activeLocked()
	keyChanged := key != q.key
	q.key = key
	q.base = append([]models.Track(nil), tracks...)

	if !q.shuffle {
		// indices into the old base are meaningless now
		q.order = nil
		return
	}
	if keyChanged {
		q.reshuffleLocked()
		return
	}
	q.order = q.carryOrderLocked(prev)
}

// Key returns the identity of the current base list.
func (q *Queue) Key() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.key
}

func (q *Queue) carryOrderLocked(prev []models.Track) []int {
	index := make(map[string]int, len(q.base))
	for i, t := range q.base {
		index[t.ID] = i
	}

	order := make([]int, 0, len(q.base))
	seen := make(map[int]bool, len(q.base))
	for _, t := range prev {
		if i, ok := index[t.ID]; ok && !seen[i] {
			order = append(order, i)
			seen[i] = true
		}
	}

	var fresh []int
	for i := range q.base {
		if !seen[i] {
			fresh = append(fresh, i)
		}
	}
	q.rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	return append(order, fresh...)
}

// reshuffleLocked builds a new Fisher-Yates permutation of the base list.
func (q *Queue) reshuffleLocked() {
	order := make([]int, len(q.base))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := q.rng.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	q.order = order
}

// SetShuffle turns shuffle on or off. Turning it on always reshuffles.
func (q *Queue) SetShuffle(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.setShuffleLocked(on)
}

func (q *Queue) setShuffleLocked(on bool) {
	if on && !q.shuffle {
		q.shuffle = true
		q.reshuffleLocked()
		return
	}
	// The permutation stays around while off; activeLocked ignores it.
	if !on {
		q.shuffle = false
	}
}

// ToggleShuffle flips shuffle and returns the new value.
func (q *Queue) ToggleShuffle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.setShuffleLocked(!q.shuffle)
	return q.shuffle
}

func (q *Queue) Shuffle() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.shuffle
}

func (q *Queue) SetRepeat(m models.RepeatMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeat = m
}

// CycleRepeat advances none, all, one, none and returns the new mode.
func (q *Queue) CycleRepeat() models.RepeatMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeat = q.repeat.Next()
	return q.repeat
}

func (q *Queue) Repeat() models.RepeatMode {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.repeat
}

// Active returns the ordering used for next and previous.
func (q *Queue) Active() []models.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.activeLocked()
}

func (q *Queue) activeLocked() []models.Track {
	if !q.shuffle || q.order == nil {
		return append([]models.Track(nil), q.base...)
	}
	out := make([]models.Track, len(q.order))
	for i, idx := range q.order {
		out[i] = q.base[idx]
	}
	return out
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.base)
}

// Next returns the track after currentID, wrapping to the start.
// An unknown currentID selects the first track. Only an empty queue returns false.
//
// Repeat mode does not affect wraparound; repeat one is handled at end of track.
func (q *Queue) Next(currentID string) (models.Track, bool) {
	active := q.Active()
	if len(active) == 0 {
		return models.Track{}, false
	}

	i := indexOf(active, currentID)
	if i < 0 {
		return active[0], true
	}
	return active[(i+1)%len(active)], true
}

// Previous returns the track before currentID, wrapping to the end.
// An unknown currentID selects the last track.
func (q *Queue) Previous(currentID string) (models.Track, bool) {
	active := q.Active()
	if len(active) == 0 {
		return models.Track{}, false
	}

	i := indexOf(active, currentID)
	if i <= 0 {
		return active[len(active)-1], true
	}
	return active[i-1], true
}

func indexOf(tracks []models.Track, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Filter keeps tracks whose name or artist contains query, ignoring case.
// An empty query keeps everything.
func Filter(tracks []models.Track, query string) []models.Track {
	query = strings.ToLower(query)
	if query == "" {
		return append([]models.Track(nil), tracks...)
	}

	out := []models.Track{}
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t.Name), query) || strings.Contains(strings.ToLower(t.Artist), query) {
			out = append(out, t)
		}
	}
	return out
}
