// package library holds the track list the player browses
package library

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/queue"
	"github.com/desertthunder/novadrive/internal/shared"
)

// demoTracks is the bundled catalog shown before a library is synced.
var demoTracks = []models.Track{
	demoTrack(1, "Midnight City", "Future Echoes", "Neon Horizon", 243),
	demoTrack(2, "Starlight Drift", "Lumina", "Celestial Paths", 185),
	demoTrack(3, "Digital Rain", "Cyber Runner", "The Grid", 312),
	demoTrack(4, "Ethereal Whispers", "Spirit Walk", "Nature Core", 278),
}

func demoTrack(n int, name, artist, album string, duration float64) models.Track {
	return models.Track{
		ID:       fmt.Sprint(n),
		Name:     name,
		Artist:   artist,
		Album:    album,
		Duration: duration,
		URL:      fmt.Sprintf("https://www.soundhelix.com/examples/mp3/SoundHelix-Song-%d.mp3", n),
		CoverArt: fmt.Sprintf("https://picsum.photos/seed/track%d/400/400", n),
		MimeType: "audio/mpeg",
	}
}

// Demo returns a copy of the bundled catalog.
func Demo() []models.Track {
	return append([]models.Track(nil), demoTracks...)
}

// Catalog is the single list of known tracks. Views and searches are derived from it.
type Catalog struct {
	mu     sync.RWMutex
	tracks []models.Track
	synced bool
	logger *log.Logger
}

// New creates a catalog seeded with the demo tracks.
func New(logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{tracks: Demo(), logger: shared.WithLogger(logger, "component", "library")}
}

// Set replaces the catalog with a synced listing. An empty listing keeps what is already there.
func (c *Catalog) Set(tracks []models.Track) bool {
	if len(tracks) == 0 {
		c.logger.Info("synced library is empty, keeping current tracks")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append([]models.Track(nil), tracks...)
	c.synced = true
	return true
}

// Synced reports whether the catalog holds a remote listing.
func (c *Catalog) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// Tracks returns a copy of every track in catalog order.
func (c *Catalog) Tracks() []models.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Track(nil), c.tracks...)
}

// Get looks up a track by id.
func (c *Catalog) Get(id string) (models.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Track{}, false
}

// First returns the first track, if any.
func (c *Catalog) First() (models.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.tracks) == 0 {
		return models.Track{}, false
	}
	return c.tracks[0], true
}

// UpdateCoverArt replaces the cover art of the track with id. It reports whether the track was found.
func (c *Catalog) UpdateCoverArt(id, coverArt string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tracks {
		if c.tracks[i].ID == id {
			c.tracks[i].CoverArt = coverArt
			return true
		}
	}
	return false
}

// BaseTracks returns the tracks in view, in catalog order.
//
// A playlist view keeps only the playlist's tracks that are in the catalog. A view whose
// playlist no longer exists shows every track.
func (c *Catalog) BaseTracks(view models.View, playlists []models.Playlist) []models.Track {
	all := c.Tracks()
	if view.Kind != models.ViewPlaylist || view.PlaylistID == "" {
		return all
	}

	var pl *models.Playlist
	for i := range playlists {
		if playlists[i].ID == view.PlaylistID {
			pl = &playlists[i]
			break
		}
	}
	if pl == nil {
		return all
	}

	out := make([]models.Track, 0, len(pl.TrackIDs))
	for _, t := range all {
		if pl.Contains(t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// ViewTracks returns the tracks in view matching search.
func (c *Catalog) ViewTracks(view models.View, playlists []models.Playlist, search string) []models.Track {
	return queue.Filter(c.BaseTracks(view, playlists), search)
}
