package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/novadrive/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
//
// The zero playlist with all set stands for the whole library.
type playlistItem struct {
	playlist models.Playlist
	all      bool
	count    int
}

func (i playlistItem) View() models.View {
	if i.all {
		return models.AllTracks()
	}
	return models.PlaylistView(i.playlist.ID)
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.all {
		return "All Tracks"
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	n := i.count
	if !i.all {
		n = len(i.playlist.TrackIDs)
	}
	if n == 1 {
		return "1 track"
	}
	return fmt.Sprintf("%d tracks", n)
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track   models.Track
	current bool
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string {
	if i.current {
		return "♪ " + i.track.Name
	}
	return i.track.Name
}
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	if i.track.Duration > 0 {
		desc = fmt.Sprintf("%s • %s", desc, formatClock(i.track.Duration))
	}
	return desc
}

func trackItems(tracks []models.Track, currentID string) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, current: t.ID == currentID}
	}
	return items
}

func playlistItems(pls []models.Playlist, total int, withAll bool) []list.Item {
	items := make([]list.Item, 0, len(pls)+1)
	if withAll {
		items = append(items, playlistItem{all: true, count: total})
	}
	for _, pl := range pls {
		items = append(items, playlistItem{playlist: pl})
	}
	return items
}
