// package player coordinates the session, library, queue, and audio engine behind one controller
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/audio"
	"github.com/desertthunder/novadrive/internal/library"
	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/playlists"
	"github.com/desertthunder/novadrive/internal/queue"
	"github.com/desertthunder/novadrive/internal/services"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/tasks"
)

// Opts wires a [Player]. Session may be nil for libraries that need no credential.
type Opts struct {
	Session   tasks.Session
	Library   services.Library
	Catalog   *library.Catalog
	Playlists *playlists.Store
	Queue     *queue.Queue
	Engine    *audio.Engine
	Logger    *log.Logger
}

// Player is the UI-facing controller.
//
// Selections are numbered. A remote track is resolved before anything changes, and a
// resolution that finishes after a newer selection is released and dropped.
type Player struct {
	session   tasks.Session
	library   services.Library
	catalog   *library.Catalog
	playlists *playlists.Store
	queue     *queue.Queue
	engine    *audio.Engine
	syncer    *tasks.LibrarySync
	logger    *log.Logger

	// loadMu orders selection commits so a handle is never released before its load returns.
	loadMu sync.Mutex

	mu     sync.Mutex
	view   models.View
	search string
	selSeq uint64
	handle *media.Handle

	upgrades chan audio.ArtworkUpgrade
	done     chan struct{}
}

func New(opts Opts) *Player {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Catalog == nil {
		opts.Catalog = library.New(opts.Logger)
	}
	if opts.Queue == nil {
		opts.Queue = queue.New(nil)
	}

	p := &Player{
		session:   opts.Session,
		library:   opts.Library,
		catalog:   opts.Catalog,
		playlists: opts.Playlists,
		queue:     opts.Queue,
		engine:    opts.Engine,
		logger:    shared.WithLogger(opts.Logger, "component", "player"),
		view:      models.AllTracks(),
		upgrades:  make(chan audio.ArtworkUpgrade, 8),
		done:      make(chan struct{}),
	}
	if opts.Library != nil {
		p.syncer = tasks.NewLibrarySync(opts.Session, opts.Library, opts.Logger)
	}

	p.engine.SetSequencer(p)
	go p.watchArtwork(p.engine.Subscribe())
	return p
}

// Start loads playlists, builds the queue, and binds the first track without playing it.
func (p *Player) Start(ctx context.Context) error {
	if p.playlists != nil {
		if err := p.playlists.Load(ctx); err != nil {
			p.logger.Warn("failed to load playlists", "error", err)
		}
	}
	p.refresh(ctx)

	first, ok := p.catalog.First()
	if !ok {
		return nil
	}
	return p.Select(ctx, first)
}

// Connect runs the interactive sign-in and syncs the library.
func (p *Player) Connect(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
	res, err := p.sync(ctx, tasks.SyncOpts{Interactive: true}, progress)
	if err != nil {
		return err
	}
	if p.apply(ctx, res) {
		if first, ok := p.catalog.First(); ok {
			return p.Select(ctx, first)
		}
	}
	return nil
}

// Resume syncs with a stored credential, if there is one. Any failure invalidates the session.
func (p *Player) Resume(ctx context.Context, progress chan<- tasks.ProgressUpdate) (bool, error) {
	if p.session != nil {
		if _, ok := p.session.ResumeIfStored(ctx); !ok {
			return false, nil
		}
	}

	res, err := p.sync(ctx, tasks.SyncOpts{}, progress)
	if err != nil {
		if p.session != nil {
			p.session.Invalidate(ctx)
		}
		return false, err
	}

	if p.apply(ctx, res) {
		if _, bound := p.engine.Current(); !bound {
			if first, ok := p.catalog.First(); ok {
				return true, p.Select(ctx, first)
			}
		}
	}
	return true, nil
}

// Sync refreshes the library, reconnecting once if the credential was rejected.
func (p *Player) Sync(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
	res, err := p.sync(ctx, tasks.SyncOpts{Interactive: true}, progress)
	if err != nil {
		return err
	}
	p.apply(ctx, res)
	return nil
}

func (p *Player) sync(ctx context.Context, opts tasks.SyncOpts, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
	if p.syncer == nil {
		return nil, fmt.Errorf("%w: no library configured", shared.ErrServiceUnavailable)
	}
	return p.syncer.Run(ctx, opts, progress)
}

func (p *Player) apply(ctx context.Context, res *tasks.SyncResult) bool {
	if !p.catalog.Set(res.Tracks) {
		return false
	}
	p.refresh(ctx)
	return true
}

// refresh recomputes the queue's base list from the catalog, view, and search.
func (p *Player) refresh(ctx context.Context) {
	p.mu.Lock()
	view, search := p.view, p.search
	p.mu.Unlock()

	p.queue.SetBase(view.Key(), p.catalog.ViewTracks(view, p.listPlaylists(ctx), search))
}

func (p *Player) listPlaylists(ctx context.Context) []models.Playlist {
	if p.playlists == nil {
		return nil
	}
	pls, err := p.playlists.List(ctx)
	if err != nil {
		p.logger.Warn("failed to list playlists", "error", err)
		return nil
	}
	return pls
}

// Select makes track current. For a remote track the bytes are fetched first and the
// current track keeps playing until they arrive.
func (p *Player) Select(ctx context.Context, track models.Track) error {
	p.mu.Lock()
	p.selSeq++
	seq := p.selSeq
	p.mu.Unlock()

	if cur, ok := p.engine.Current(); ok && cur.ID == track.ID {
		return nil
	}

	playable := track
	var handle *media.Handle
	var err error
	if track.IsRemote {
		handle, err = p.resolve(ctx, track)
		if handle != nil {
			playable.URL = handle.URL
		}
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.mu.Lock()
	if seq != p.selSeq {
		p.mu.Unlock()
		handle.Release()
		p.logger.Debug("dropping stale selection", "id", track.ID, "error", err)
		return nil
	}
	if err != nil {
		p.mu.Unlock()
		handle.Release()
		p.logger.Error("failed to fetch track media", "id", track.ID, "error", err)
		return err
	}
	prev := p.handle
	p.handle = handle
	p.mu.Unlock()

	err = p.engine.Load(ctx, playable)
	if prev != handle {
		prev.Release()
	}
	return err
}

func (p *Player) resolve(ctx context.Context, track models.Track) (*media.Handle, error) {
	if p.library == nil {
		return nil, fmt.Errorf("%w: no library configured", shared.ErrServiceUnavailable)
	}

	var cred models.Credential
	if p.session != nil {
		c, ok := p.session.Credential()
		if !ok {
			return nil, shared.ErrUnauthenticated
		}
		cred = c
	}

	h, err := p.library.ResolvePlayableURL(ctx, cred, track.ID)
	if errors.Is(err, shared.ErrUnauthenticated) && p.session != nil {
		p.session.Invalidate(ctx)
	}
	return h, err
}

// Next selects the track after the current one, wrapping at the end.
func (p *Player) Next(ctx context.Context) error {
	cur, _ := p.engine.Current()
	next, ok := p.queue.Next(cur.ID)
	if !ok {
		return nil
	}
	return p.Select(ctx, next)
}

// Previous selects the track before the current one, wrapping at the start.
func (p *Player) Previous(ctx context.Context) error {
	cur, _ := p.engine.Current()
	prev, ok := p.queue.Previous(cur.ID)
	if !ok {
		return nil
	}
	return p.Select(ctx, prev)
}

func (p *Player) TogglePlayPause(ctx context.Context) error {
	return p.engine.TogglePlayPause(ctx)
}

func (p *Player) Seek(seconds float64) error {
	return p.engine.Seek(seconds)
}

func (p *Player) SetVolume(v float64) {
	p.engine.SetVolume(v)
}

// ToggleShuffle flips shuffle and returns the new setting.
func (p *Player) ToggleShuffle() bool {
	return p.queue.ToggleShuffle()
}

// CycleRepeat advances none, all, one and returns the new mode.
func (p *Player) CycleRepeat() models.RepeatMode {
	return p.queue.CycleRepeat()
}

func (p *Player) Shuffle() bool            { return p.queue.Shuffle() }
func (p *Player) Repeat() models.RepeatMode { return p.queue.Repeat() }

// SetView switches the browsed list. A shuffled queue is reshuffled for the new view.
func (p *Player) SetView(ctx context.Context, view models.View) {
	p.mu.Lock()
	p.view = view
	p.mu.Unlock()
	p.refresh(ctx)
}

// SetSearch filters the current view. The shuffled order of surviving tracks is kept.
func (p *Player) SetSearch(ctx context.Context, query string) {
	p.mu.Lock()
	p.search = query
	p.mu.Unlock()
	p.refresh(ctx)
}

func (p *Player) View() models.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *Player) Search() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

// Tracks returns every track in the catalog.
func (p *Player) Tracks() []models.Track {
	return p.catalog.Tracks()
}

// Visible returns the tracks shown for the current view and search, in catalog order.
func (p *Player) Visible(ctx context.Context) []models.Track {
	p.mu.Lock()
	view, search := p.view, p.search
	p.mu.Unlock()
	return p.catalog.ViewTracks(view, p.listPlaylists(ctx), search)
}

// ViewTitle names the current view for display.
func (p *Player) ViewTitle(ctx context.Context) string {
	view := p.View()
	if view.Kind != models.ViewPlaylist {
		return "All Tracks"
	}
	if p.playlists != nil {
		if pl, err := p.playlists.Get(ctx, view.PlaylistID); err == nil {
			return pl.Name
		}
	}
	return "Unknown Playlist"
}

func (p *Player) Playlists(ctx context.Context) []models.Playlist {
	return p.listPlaylists(ctx)
}

func (p *Player) CreatePlaylist(ctx context.Context, name string) (models.Playlist, error) {
	if p.playlists == nil {
		return models.Playlist{}, fmt.Errorf("%w: playlists unavailable", shared.ErrServiceUnavailable)
	}
	return p.playlists.Create(ctx, name)
}

// DeletePlaylist removes a playlist. If it was being viewed, the view returns to all tracks.
func (p *Player) DeletePlaylist(ctx context.Context, id string) error {
	if p.playlists == nil {
		return fmt.Errorf("%w: playlists unavailable", shared.ErrServiceUnavailable)
	}
	if err := p.playlists.Delete(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	if p.view.Kind == models.ViewPlaylist && p.view.PlaylistID == id {
		p.view = models.AllTracks()
	}
	p.mu.Unlock()
	p.refresh(ctx)
	return nil
}

// AddToPlaylist adds a track to a playlist; adding it twice is a no-op.
func (p *Player) AddToPlaylist(ctx context.Context, playlistID, trackID string) error {
	if p.playlists == nil {
		return fmt.Errorf("%w: playlists unavailable", shared.ErrServiceUnavailable)
	}
	if _, err := p.playlists.AddTrack(ctx, playlistID, trackID); err != nil {
		return err
	}
	p.refresh(ctx)
	return nil
}

func (p *Player) RemoveFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	if p.playlists == nil {
		return fmt.Errorf("%w: playlists unavailable", shared.ErrServiceUnavailable)
	}
	if _, err := p.playlists.RemoveTrack(ctx, playlistID, trackID); err != nil {
		return err
	}
	p.refresh(ctx)
	return nil
}

// Snapshot returns the engine state for display.
func (p *Player) Snapshot() audio.Snapshot {
	return p.engine.Snapshot()
}

// Frames streams analyser frames while playing.
func (p *Player) Frames(ctx context.Context, fps int, fftSize func() int) <-chan []uint8 {
	return p.engine.Frames(ctx, fps, fftSize)
}

// Artwork reports cover art found in downloaded tracks, after the catalog is updated.
func (p *Player) Artwork() <-chan audio.ArtworkUpgrade {
	return p.upgrades
}

func (p *Player) watchArtwork(ch <-chan audio.ArtworkUpgrade) {
	defer close(p.done)
	defer close(p.upgrades)
	for up := range ch {
		if !p.catalog.UpdateCoverArt(up.TrackID, up.CoverArt) {
			continue
		}
		p.refresh(context.Background())
		select {
		case p.upgrades <- up:
		default:
		}
	}
}

// Close releases the current handle and stops the engine.
func (p *Player) Close() error {
	p.mu.Lock()
	h := p.handle
	p.handle = nil
	p.selSeq++
	p.mu.Unlock()

	err := p.engine.Close()
	<-p.done
	h.Release()
	return err
}
