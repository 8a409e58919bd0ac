package playlists

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/store"
	tu "github.com/desertthunder/novadrive/internal/testing"
)

func newStore(kv store.KV) *Store {
	n := 0
	return New(kv,
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithIDs(func() string { n++; return fmt.Sprintf("pl-%d", n) }),
		WithLogger(shared.NewLogger(&bytes.Buffer{})),
	)
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		kv := store.NewMemoryStore()
		s := newStore(kv)

		pl, err := s.Create(ctx, "Road Trip")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if pl.ID != "pl-1" || pl.CreatedAt != 1700000000000 || len(pl.TrackIDs) != 0 {
			t.Errorf("unexpected playlist %+v", pl)
		}
		s.AddTrack(ctx, pl.ID, "t1")
		s.AddTrack(ctx, pl.ID, "t2")
		s.Create(ctx, "Empty")

		reloaded := New(kv)
		pls, err := reloaded.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(pls) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(pls))
		}
		if pls[0].Name != "Road Trip" || strings.Join(pls[0].TrackIDs, ",") != "t1,t2" {
			t.Errorf("unexpected first playlist %+v", pls[0])
		}
		if pls[1].TrackIDs == nil {
			t.Error("empty playlist should load with an empty track list")
		}
	})

	t.Run("stored json shape", func(t *testing.T) {
		kv := store.NewMemoryStore()
		s := newStore(kv)
		pl, _ := s.Create(ctx, "Mix")
		s.AddTrack(ctx, pl.ID, "x")

		raw, _, _ := kv.Get(ctx, Key)
		want := `[{"id":"pl-1","name":"Mix","trackIds":["x"],"createdAt":1700000000000}]`
		if raw != want {
			t.Errorf("stored %s, want %s", raw, want)
		}
	})

	t.Run("AddTrack is idempotent", func(t *testing.T) {
		s := newStore(store.NewMemoryStore())
		pl, _ := s.Create(ctx, "Mix")
		s.AddTrack(ctx, pl.ID, "a")
		got, err := s.AddTrack(ctx, pl.ID, "a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.TrackIDs) != 1 {
			t.Errorf("expected one track, got %v", got.TrackIDs)
		}
	})

	t.Run("RemoveTrack", func(t *testing.T) {
		s := newStore(store.NewMemoryStore())
		pl, _ := s.Create(ctx, "Mix")
		s.AddTrack(ctx, pl.ID, "a")
		s.AddTrack(ctx, pl.ID, "b")

		got, err := s.RemoveTrack(ctx, pl.ID, "a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(got.TrackIDs, ",") != "b" {
			t.Errorf("unexpected tracks %v", got.TrackIDs)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(store.NewMemoryStore())
		a, _ := s.Create(ctx, "A")
		b, _ := s.Create(ctx, "B")

		if err := s.Delete(ctx, a.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		pls, _ := s.List(ctx)
		if len(pls) != 1 || pls[0].ID != b.ID {
			t.Errorf("unexpected playlists %+v", pls)
		}
		if err := s.Delete(ctx, a.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		s := newStore(store.NewMemoryStore())
		if _, err := s.AddTrack(ctx, "nope", "a"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Find by id or name", func(t *testing.T) {
		s := newStore(store.NewMemoryStore())
		pl, _ := s.Create(ctx, "Late Night")

		if got, err := s.Find(ctx, pl.ID); err != nil || got.ID != pl.ID {
			t.Errorf("find by id: %+v %v", got, err)
		}
		if got, err := s.Find(ctx, "late night"); err != nil || got.ID != pl.ID {
			t.Errorf("find by name: %+v %v", got, err)
		}
		if _, err := s.Find(ctx, "other"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Create requires a name", func(t *testing.T) {
		s := newStore(store.NewMemoryStore())
		if _, err := s.Create(ctx, "  "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("corrupt value loads empty", func(t *testing.T) {
		kv := store.NewMemoryStore()
		kv.Set(ctx, Key, "{not json")
		var logs bytes.Buffer
		s := New(kv, WithLogger(shared.NewLogger(&logs)))

		pls, err := s.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pls) != 0 {
			t.Errorf("expected no playlists, got %d", len(pls))
		}
		if !strings.Contains(logs.String(), shared.ErrStorageParseFailure.Error()) {
			t.Errorf("expected parse failure to be logged, got %q", logs.String())
		}

		if _, err := s.Create(ctx, "Fresh"); err != nil {
			t.Fatalf("create after corrupt load failed: %v", err)
		}
	})

	t.Run("storage failures", func(t *testing.T) {
		boom := errors.New("disk gone")
		s := New(&tu.FailingKV{Err: boom})
		if _, err := s.List(ctx); !errors.Is(err, boom) {
			t.Errorf("expected storage error, got %v", err)
		}
	})
}
