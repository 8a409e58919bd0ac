package library

import (
	"io"
	"testing"

	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
)

func remote(id, name, artist string) models.Track {
	return models.Track{ID: id, Name: name, Artist: artist, IsRemote: true}
}

func ids(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCatalog(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("starts with demo tracks", func(t *testing.T) {
		c := New(logger)
		tracks := c.Tracks()
		if !equal(ids(tracks), []string{"1", "2", "3", "4"}) {
			t.Fatalf("unexpected demo ids %v", ids(tracks))
		}
		if tracks[0].Name != "Midnight City" || tracks[0].Duration != 243 {
			t.Errorf("unexpected first demo track %+v", tracks[0])
		}
		if tracks[2].URL != "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-3.mp3" {
			t.Errorf("unexpected url %s", tracks[2].URL)
		}
		if c.Synced() {
			t.Error("demo catalog should not be synced")
		}
	})

	t.Run("Set replaces and ignores empty listings", func(t *testing.T) {
		c := New(logger)
		if c.Set(nil) {
			t.Error("empty listing should be ignored")
		}
		if len(c.Tracks()) != 4 {
			t.Error("demo tracks should survive an empty sync")
		}

		if !c.Set([]models.Track{remote("a", "A", "X")}) {
			t.Error("expected listing to apply")
		}
		if !equal(ids(c.Tracks()), []string{"a"}) || !c.Synced() {
			t.Errorf("unexpected tracks %v", ids(c.Tracks()))
		}
	})

	t.Run("Tracks returns a copy", func(t *testing.T) {
		c := New(logger)
		tracks := c.Tracks()
		tracks[0].Name = "changed"
		if got, _ := c.Get("1"); got.Name != "Midnight City" {
			t.Error("catalog mutated through returned slice")
		}
	})

	t.Run("UpdateCoverArt", func(t *testing.T) {
		c := New(logger)
		if !c.UpdateCoverArt("2", "data:image/png;base64,AA==") {
			t.Fatal("expected track 2 to be found")
		}
		if got, _ := c.Get("2"); got.CoverArt != "data:image/png;base64,AA==" {
			t.Errorf("cover art not updated: %s", got.CoverArt)
		}
		if c.UpdateCoverArt("missing", "x") {
			t.Error("expected missing track to report false")
		}
	})
}

func TestViewTracks(t *testing.T) {
	c := New(shared.NewLogger(io.Discard))
	c.Set([]models.Track{
		remote("a", "Blue Monday", "New Order"),
		remote("b", "Ceremony", "Joy Division"),
		remote("c", "Regret", "New Order"),
	})
	playlists := []models.Playlist{{ID: "p1", Name: "Mix", TrackIDs: []string{"c", "a", "gone"}}}

	tests := []struct {
		name   string
		view   models.View
		search string
		want   []string
	}{
		{"all", models.AllTracks(), "", []string{"a", "b", "c"}},
		{"playlist keeps catalog order", models.PlaylistView("p1"), "", []string{"a", "c"}},
		{"missing playlist falls back to all", models.PlaylistView("nope"), "", []string{"a", "b", "c"}},
		{"search by artist", models.AllTracks(), "new order", []string{"a", "c"}},
		{"search by name", models.AllTracks(), "CERE", []string{"b"}},
		{"search within playlist", models.PlaylistView("p1"), "regret", []string{"c"}},
		{"search is not trimmed", models.AllTracks(), " regret", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(c.ViewTracks(tt.view, playlists, tt.search))
			if !equal(got, tt.want) {
				t.Errorf("ViewTracks() = %v, want %v", got, tt.want)
			}
		})
	}
}
