// package playlists persists user playlists as a single JSON document in the key-value store
package playlists

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/store"
	"github.com/google/uuid"
)

// Key is where the playlist array is stored.
const Key = "playlists"

// Store keeps playlists in memory and writes the whole array back on every change.
type Store struct {
	kv     store.KV
	now    func() time.Time
	newID  func() string
	logger *log.Logger

	mu        sync.Mutex
	loaded    bool
	playlists []models.Playlist
}

type Option func(*Store)

// WithClock sets the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs sets the playlist id generator.
func WithIDs(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(kv store.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = shared.WithLogger(s.logger, "component", "playlists")
	return s
}

// Load reads the stored array. A corrupt value is logged and replaced by an empty list.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return fmt.Errorf("failed to read playlists: %w", err)
	}

	s.playlists = []models.Playlist{}
	if ok && raw != "" {
		var stored []models.Playlist
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			s.logger.Error("failed to parse playlists", "error", fmt.Errorf("%w: %v", shared.ErrStorageParseFailure, err))
		} else {
			for _, pl := range stored {
				if pl.TrackIDs == nil {
					pl.TrackIDs = []string{}
				}
				s.playlists = append(s.playlists, pl)
			}
		}
	}
	s.loaded = true
	return nil
}

func (s *Store) saveLocked(ctx context.Context, next []models.Playlist) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode playlists: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("failed to save playlists: %w", err)
	}
	s.playlists = next
	return nil
}

// List returns every playlist in creation order.
func (s *Store) List(ctx context.Context) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	return clonePlaylists(s.playlists), nil
}

// Get returns the playlist with id, or [shared.ErrPlaylistNotFound].
func (s *Store) Get(ctx context.Context, id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return models.Playlist{}, err
	}
	i := s.indexLocked(id)
	if i < 0 {
		return models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return clonePlaylist(s.playlists[i]), nil
}

// Find resolves a playlist by id, then by case-insensitive name.
func (s *Store) Find(ctx context.Context, idOrName string) (models.Playlist, error) {
	pls, err := s.List(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	for _, pl := range pls {
		if pl.ID == idOrName {
			return pl, nil
		}
	}
	for _, pl := range pls {
		if strings.EqualFold(pl.Name, idOrName) {
			return pl, nil
		}
	}
	return models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, idOrName)
}

// Create adds an empty playlist named name.
func (s *Store) Create(ctx context.Context, name string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return models.Playlist{}, err
	}

	pl := models.Playlist{
		ID:        s.newID(),
		Name:      name,
		TrackIDs:  []string{},
		CreatedAt: s.now().UnixMilli(),
	}
	next := append(clonePlaylists(s.playlists), pl)
	if err := s.saveLocked(ctx, next); err != nil {
		return models.Playlist{}, err
	}
	s.logger.Info("created playlist", "id", pl.ID, "name", pl.Name)
	return clonePlaylist(pl), nil
}

// Delete removes the playlist with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	next := slices.Delete(clonePlaylists(s.playlists), i, i+1)
	return s.saveLocked(ctx, next)
}

// AddTrack appends trackID to the playlist. Adding a track that is already there does nothing.
func (s *Store) AddTrack(ctx context.Context, playlistID, trackID string) (models.Playlist, error) {
	return s.update(ctx, playlistID, func(pl *models.Playlist) bool {
		if pl.Contains(trackID) {
			return false
		}
		pl.TrackIDs = append(pl.TrackIDs, trackID)
		return true
	})
}

// RemoveTrack drops trackID from the playlist.
func (s *Store) RemoveTrack(ctx context.Context, playlistID, trackID string) (models.Playlist, error) {
	return s.update(ctx, playlistID, func(pl *models.Playlist) bool {
		before := len(pl.TrackIDs)
		pl.TrackIDs = slices.DeleteFunc(pl.TrackIDs, func(id string) bool { return id == trackID })
		return len(pl.TrackIDs) != before
	})
}

func (s *Store) update(ctx context.Context, playlistID string, fn func(*models.Playlist) bool) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return models.Playlist{}, err
	}

	i := s.indexLocked(playlistID)
	if i < 0 {
		return models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	next := clonePlaylists(s.playlists)
	if !fn(&next[i]) {
		return clonePlaylist(next[i]), nil
	}
	if err := s.saveLocked(ctx, next); err != nil {
		return models.Playlist{}, err
	}
	return clonePlaylist(next[i]), nil
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.playlists, func(pl models.Playlist) bool { return pl.ID == id })
}

func clonePlaylist(pl models.Playlist) models.Playlist {
	pl.TrackIDs = append([]string{}, pl.TrackIDs...)
	return pl
}

func clonePlaylists(pls []models.Playlist) []models.Playlist {
	out := make([]models.Playlist, len(pls))
	for i, pl := range pls {
		out[i] = clonePlaylist(pl)
	}
	return out
}
