package queue

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/desertthunder/novadrive/internal/models"
)

func tracks(n int) []models.Track {
	out := make([]models.Track, n)
	for i := range out {
		out[i] = models.Track{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Track %d", i), Artist: "Artist"}
	}
	return out
}

func ids(ts []models.Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestQueue(t *testing.T) {
	t.Run("Next is cyclic", func(t *testing.T) {
		for _, shuffle := range []bool{false, true} {
			t.Run(fmt.Sprintf("shuffle=%v", shuffle), func(t *testing.T) {
				q := New(seeded())
				q.SetBase("all", tracks(5))
				q.SetShuffle(shuffle)

				start := q.Active()[2].ID
				cur := start
				for i := 0; i < 5; i++ {
					next, ok := q.Next(cur)
					if !ok {
						t.Fatal("expected a next track")
					}
					cur = next.ID
				}
				if cur != start {
					t.Errorf("expected to return to %s after N steps, got %s", start, cur)
				}
			})
		}
	})

	t.Run("Previous undoes Next", func(t *testing.T) {
		q := New(seeded())
		q.SetBase("all", tracks(4))
		q.SetShuffle(true)

		for _, tr := range q.Active() {
			next, _ := q.Next(tr.ID)
			prev, _ := q.Previous(next.ID)
			if prev.ID != tr.ID {
				t.Errorf("Previous(Next(%s)) = %s", tr.ID, prev.ID)
			}
		}
	})

	t.Run("wraparound ignores repeat mode", func(t *testing.T) {
		q := New(seeded())
		q.SetBase("all", tracks(3))

		for _, mode := range []models.RepeatMode{models.RepeatNone, models.RepeatAll, models.RepeatOne} {
			q.SetRepeat(mode)
			next, ok := q.Next("t2")
			if !ok || next.ID != "t0" {
				t.Errorf("repeat %v: expected wrap to t0, got %s", mode, next.ID)
			}
		}
	})

	t.Run("unknown current track", func(t *testing.T) {
		q := New(seeded())
		q.SetBase("all", tracks(3))

		if next, _ := q.Next("missing"); next.ID != "t0" {
			t.Errorf("expected Next to select first, got %s", next.ID)
		}
		if prev, _ := q.Previous("missing"); prev.ID != "t2" {
			t.Errorf("expected Previous to select last, got %s", prev.ID)
		}
		if next, _ := q.Next(""); next.ID != "t0" {
			t.Errorf("expected Next with no current to select first, got %s", next.ID)
		}
	})

	t.Run("empty queue", func(t *testing.T) {
		q := New(seeded())
		if _, ok := q.Next("t0"); ok {
			t.Error("expected no next track")
		}
		if _, ok := q.Previous("t0"); ok {
			t.Error("expected no previous track")
		}
	})

	t.Run("single track", func(t *testing.T) {
		q := New(seeded())
		q.SetBase("all", tracks(1))
		if next, _ := q.Next("t0"); next.ID != "t0" {
			t.Errorf("expected t0, got %s", next.ID)
		}
		if prev, _ := q.Previous("t0"); prev.ID != "t0" {
			t.Errorf("expected t0, got %s", prev.ID)
		}
	})

	t.Run("shuffle is a permutation", func(t *testing.T) {
		q := New(seeded())
		base := tracks(20)
		q.SetBase("all", base)
		q.SetShuffle(true)

		got := ids(q.Active())
		want := ids(base)
		sort.Strings(got)
		sort.Strings(want)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("shuffled order is not a permutation: %v", got)
			}
		}
	})

	t.Run("shuffle off restores base order", func(t *testing.T) {
		q := New(seeded())
		base := tracks(6)
		q.SetBase("all", base)
		q.SetShuffle(true)
		q.SetShuffle(false)

		for i, tr := range q.Active() {
			if tr.ID != base[i].ID {
				t.Fatalf("expected base order, got %v", ids(q.Active()))
			}
		}
	})

	t.Run("shuffle off keeps the permutation", func(t *testing.T) {
		q := New(seeded())
		q.SetBase("all", tracks(6))
		q.SetShuffle(true)
		kept := append([]int(nil), q.order...)

		q.SetShuffle(false)
		if len(q.order) != len(kept) {
			t.Fatalf("expected the shuffled order to survive, got %v", q.order)
		}
		for i := range kept {
			if q.order[i] != kept[i] {
				t.Fatalf("expected %v, got %v", kept, q.order)
			}
		}
	})

	t.Run("key change reshuffles", func(t *testing.T) {
		q := New(seeded())
		q.SetBase("all", tracks(12))
		q.SetShuffle(true)
		first := ids(q.Active())

		q.SetBase("all", tracks(12))
		same := ids(q.Active())
		for i := range first {
			if first[i] != same[i] {
				t.Fatal("same key should keep the shuffled order")
			}
		}

		q.SetBase("playlist:p1", tracks(12))
		if q.Key() != "playlist:p1" {
			t.Errorf("expected key to update, got %s", q.Key())
		}
		second := ids(q.Active())
		differs := false
		for i := range first {
			if first[i] != second[i] {
				differs = true
			}
		}
		if !differs {
			t.Error("expected a fresh shuffle after key change")
		}
	})

	t.Run("same key keeps surviving order", func(t *testing.T) {
		q := New(seeded())
		base := tracks(6)
		q.SetBase("all", base)
		q.SetShuffle(true)
		before := ids(q.Active())

		q.SetBase("all", append(base[:0:0], base[1:]...))
		after := ids(q.Active())

		if len(after) != 5 {
			t.Fatalf("expected 5 tracks, got %d", len(after))
		}
		j := 0
		for _, id := range before {
			if id == "t0" {
				continue
			}
			if after[j] != id {
				t.Fatalf("expected surviving order %v, got %v", before, after)
			}
			j++
		}
	})

	t.Run("CycleRepeat", func(t *testing.T) {
		q := New(seeded())
		want := []models.RepeatMode{models.RepeatAll, models.RepeatOne, models.RepeatNone}
		for _, w := range want {
			if got := q.CycleRepeat(); got != w {
				t.Errorf("expected %v, got %v", w, got)
			}
		}
	})

	t.Run("ToggleShuffle", func(t *testing.T) {
		q := New(seeded())
		if !q.ToggleShuffle() || !q.Shuffle() {
			t.Error("expected shuffle on")
		}
		if q.ToggleShuffle() {
			t.Error("expected shuffle off")
		}
	})
}

func TestFilter(t *testing.T) {
	ts := []models.Track{
		{ID: "1", Name: "Midnight City", Artist: "Future Echoes"},
		{ID: "2", Name: "Starlight Drift", Artist: "Lumina"},
		{ID: "3", Name: "Digital Rain", Artist: "Cyber Runner"},
	}

	tc := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"1", "2", "3"}},
		{query: "CITY", want: []string{"1"}},
		{query: "lumina", want: []string{"2"}},
		{query: "i", want: []string{"1", "2", "3"}},
		{query: "nothing", want: []string{}},
	}

	for _, tt := range tc {
		t.Run(tt.query, func(t *testing.T) {
			got := ids(Filter(ts, tt.query))
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
				}
			}
		})
	}
}
