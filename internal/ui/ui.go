package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/novadrive/internal/audio"
	"github.com/desertthunder/novadrive/internal/auth"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/player"
	"github.com/desertthunder/novadrive/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryView ViewState = iota
	SearchView
	PlaylistsView
	NewPlaylistView
	AddToPlaylistView
)

const (
	tickInterval = 250 * time.Millisecond
	seekStep     = 5.0
	volumeStep   = 0.05
	compactBars  = 3
	// header, now playing, status, and the blank lines between them
	chromeHeight = 9
)

// SessionState reports whether the library is signed in.
type SessionState interface {
	State() auth.State
}

// Options configures a [Model].
type Options struct {
	Player   *player.Player
	Session  SessionState // nil when the library needs no sign-in
	Source   string       // library name shown in the header
	AutoSync bool         // sync on start when there is no session to resume
	FPS      int

	FFTSize         int // analyser sizes for the compact and expanded visualizer
	ExpandedFFTSize int
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	player   *player.Player
	session  SessionState
	source   string
	autoSync bool
	fps      int
	fft      [2]int

	width     int
	height    int
	trackList list.Model
	pickList  list.Model
	input     textinput.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	syncing      bool
	syncErr      error

	frames    <-chan []uint8
	bins      []uint8
	expanded  atomic.Bool
	snap      audio.Snapshot
	currentID string
	adding    models.Track
	covers    map[string]string
	note      string
	err       error
}

// NewModel creates a new TUI model around a started player.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.FFTSize <= 0 {
		opts.FFTSize = audio.DefaultFFTSize
	}
	if opts.ExpandedFFTSize <= 0 {
		opts.ExpandedFFTSize = audio.ExpandedFFTSize
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.accent

	m := &Model{
		ctx:       ctx,
		view:      LibraryView,
		player:    opts.Player,
		session:   opts.Session,
		source:    opts.Source,
		autoSync:  opts.AutoSync,
		fps:       opts.FPS,
		fft:       [2]int{opts.FFTSize, opts.ExpandedFFTSize},
		trackList: newList("All Tracks"),
		pickList:  newList("Playlists"),
		input:     textinput.New(),
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
		covers:    make(map[string]string),
	}
	m.refreshTracks()
	return m
}

func newList(title string) list.Model {
	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.
		Foreground(lipgloss.Color("#3b82f6")).
		BorderForeground(lipgloss.Color("#3b82f6"))
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.
		Foreground(lipgloss.Color("#60a5fa")).
		BorderForeground(lipgloss.Color("#3b82f6"))

	l := list.New(nil, d, 0, 0)
	l.Title = title
	l.Styles.Title = l.Styles.Title.Background(lipgloss.Color("#3b82f6"))
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

// Init starts the player, resumes a stored session, and subscribes to frames and artwork.
func (m *Model) Init() tea.Cmd {
	m.frames = m.player.Frames(m.ctx, m.fps, m.fftSize)
	return tea.Batch(
		m.startSession(),
		m.waitForFrame(),
		m.waitForArtwork(),
		m.tick(),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case SearchView, NewPlaylistView:
			return m.handleInputKeys(msg)
		case PlaylistsView:
			return m.handlePlaylistKeys(msg)
		case AddToPlaylistView:
			return m.handleAddKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		m.syncing = false
		m.progressChan = nil
		if o := msg.data.(outcome); o.err != nil {
			m.err = o.err
		} else {
			m.err = nil
			m.note = m.progress.Message
		}
		m.snap = m.player.Snapshot()
		m.refreshTracks()
		return m, nil

	case MsgActionDone:
		if err := msg.data.(outcome).err; err != nil {
			m.err = err
		}
		m.snap = m.player.Snapshot()
		m.refreshTracks()
		return m, nil

	case MsgPlaylistsChanged:
		o := msg.data.(outcome)
		if o.err != nil {
			m.err = o.err
		} else {
			m.err = nil
			m.note = o.note
		}
		m.refreshTracks()
		if m.view == PlaylistsView {
			m.refreshPicker()
		}
		return m, nil

	case MsgFrame:
		m.bins = msg.data.([]uint8)
		return m, m.waitForFrame()

	case MsgArtwork:
		up := msg.data.(audio.ArtworkUpgrade)
		m.covers[up.TrackID] = up.CoverArt
		if up.TrackID == m.currentID {
			m.note = "Found embedded cover art"
		}
		return m, m.waitForArtwork()

	case MsgTick:
		m.snap = m.player.Snapshot()
		if m.snap.State != audio.Playing {
			m.bins = decay(m.bins)
		}
		if id := trackID(m.snap.Track); id != m.currentID {
			m.refreshTracks()
		}
		return m, m.tick()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlaylistsView:
		keys := []key.Binding{m.keys.enter, m.keys.create, m.keys.delete, m.keys.back, m.keys.quit}
		return fmt.Sprintf("%s\n\n%s", m.pickList.View(), m.help.ShortHelpView(keys))
	case AddToPlaylistView:
		keys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
		return fmt.Sprintf("%s\n\n%s", m.pickList.View(), m.help.ShortHelpView(keys))
	case NewPlaylistView:
		title := styles.title.Render("New Playlist")
		keys := []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create")),
			m.keys.back,
		}
		return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), m.help.ShortHelpView(keys))
	default:
		return m.renderLibrary()
	}
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	case key.Matches(msg, m.keys.enter):
		if t, ok := m.selectedTrack(); ok {
			return m, m.do(func() error { return m.player.Select(m.ctx, t) })
		}
	case key.Matches(msg, m.keys.play):
		return m, m.do(func() error { return m.player.TogglePlayPause(m.ctx) })
	case key.Matches(msg, m.keys.next):
		return m, m.do(func() error { return m.player.Next(m.ctx) })
	case key.Matches(msg, m.keys.prev):
		return m, m.do(func() error { return m.player.Previous(m.ctx) })
	case key.Matches(msg, m.keys.shuffle):
		if m.player.ToggleShuffle() {
			m.note = "Shuffle on"
		} else {
			m.note = "Shuffle off"
		}
	case key.Matches(msg, m.keys.repeat):
		m.note = "Repeat " + m.player.CycleRepeat().String()
	case key.Matches(msg, m.keys.seekBack):
		m.seek(-seekStep)
	case key.Matches(msg, m.keys.seekFwd):
		m.seek(seekStep)
	case key.Matches(msg, m.keys.volUp):
		m.player.SetVolume(m.player.Snapshot().Volume + volumeStep)
		m.snap = m.player.Snapshot()
	case key.Matches(msg, m.keys.volDown):
		m.player.SetVolume(m.player.Snapshot().Volume - volumeStep)
		m.snap = m.player.Snapshot()
	case key.Matches(msg, m.keys.expand):
		m.expanded.Store(!m.expanded.Load())
		m.resize()
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.input = newInput("/ ", "title, artist, or album")
		m.input.SetValue(m.player.Search())
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.playlists):
		m.openPicker(PlaylistsView)
	case key.Matches(msg, m.keys.add):
		t, ok := m.selectedTrack()
		if !ok {
			return m, nil
		}
		if len(m.player.Playlists(m.ctx)) == 0 {
			m.note = "No playlists yet. Press tab, then n to create one"
			return m, nil
		}
		m.adding = t
		m.openPicker(AddToPlaylistView)
	case key.Matches(msg, m.keys.remove):
		t, ok := m.selectedTrack()
		view := m.player.View()
		if !ok || view.Kind != models.ViewPlaylist {
			m.note = "Open a playlist to remove tracks from it"
			return m, nil
		}
		return m, m.playlistCmd(fmt.Sprintf("Removed %s", t.Name), func() error {
			return m.player.RemoveFromPlaylist(m.ctx, view.PlaylistID, t.ID)
		})
	case key.Matches(msg, m.keys.connect):
		return m, m.connect()
	case key.Matches(msg, m.keys.back):
		if m.player.Search() != "" {
			m.player.SetSearch(m.ctx, "")
			m.refreshTracks()
		}
	default:
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	searching := m.view == SearchView

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if searching {
			m.player.SetSearch(m.ctx, "")
			m.refreshTracks()
			m.view = LibraryView
		} else {
			m.openPicker(PlaylistsView)
		}
		return m, nil
	case "enter":
		if searching {
			m.view = LibraryView
			return m, nil
		}
		name := m.input.Value()
		m.openPicker(PlaylistsView)
		return m, m.playlistCmd(fmt.Sprintf("Created %s", strings.TrimSpace(name)), func() error {
			_, err := m.player.CreatePlaylist(m.ctx, name)
			return err
		})
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if searching && m.input.Value() != prev {
		m.player.SetSearch(m.ctx, m.input.Value())
		m.refreshTracks()
		m.trackList.Select(0)
	}
	return m, cmd
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.playlists):
		m.view = LibraryView
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.pickList.SelectedItem().(playlistItem); ok {
			m.player.SetView(m.ctx, item.View())
			m.view = LibraryView
			m.refreshTracks()
			m.trackList.Select(0)
		}
	case key.Matches(msg, m.keys.create):
		m.view = NewPlaylistView
		m.input = newInput("> ", "Playlist name")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.delete):
		item, ok := m.pickList.SelectedItem().(playlistItem)
		if !ok || item.all {
			return m, nil
		}
		return m, m.playlistCmd(fmt.Sprintf("Deleted %s", item.playlist.Name), func() error {
			return m.player.DeletePlaylist(m.ctx, item.playlist.ID)
		})
	default:
		var cmd tea.Cmd
		m.pickList, cmd = m.pickList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = LibraryView
	case key.Matches(msg, m.keys.enter):
		item, ok := m.pickList.SelectedItem().(playlistItem)
		if !ok {
			return m, nil
		}
		m.view = LibraryView
		t := m.adding
		return m, m.playlistCmd(fmt.Sprintf("Added %s to %s", t.Name, item.playlist.Name), func() error {
			return m.player.AddToPlaylist(m.ctx, item.playlist.ID, t.ID)
		})
	default:
		var cmd tea.Cmd
		m.pickList, cmd = m.pickList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LibraryView, SearchView:
		m.trackList, cmd = m.trackList.Update(msg)
	case PlaylistsView, AddToPlaylistView:
		m.pickList, cmd = m.pickList.Update(msg)
	}
	return m, cmd
}

func (m *Model) startSession() tea.Cmd {
	return m.runSync(func(progress chan<- tasks.ProgressUpdate) error {
		startErr := m.player.Start(m.ctx)

		var err error
		switch {
		case m.session != nil:
			_, err = m.player.Resume(m.ctx, progress)
		case m.autoSync:
			err = m.player.Sync(m.ctx, progress)
		}
		return errors.Join(startErr, err)
	})
}

func (m *Model) connect() tea.Cmd {
	if m.session == nil {
		return m.runSync(func(progress chan<- tasks.ProgressUpdate) error {
			return m.player.Sync(m.ctx, progress)
		})
	}
	return m.runSync(func(progress chan<- tasks.ProgressUpdate) error {
		return m.player.Connect(m.ctx, progress)
	})
}

// runSync runs fn in the background and reports its progress until it returns.
func (m *Model) runSync(fn func(chan<- tasks.ProgressUpdate) error) tea.Cmd {
	if m.syncing {
		return nil
	}
	m.syncing = true
	m.progress = tasks.ProgressUpdate{}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func(ch chan tasks.ProgressUpdate) {
		m.syncErr = fn(ch)
		close(ch)
	}(m.progressChan)

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		if ch == nil {
			return syncCompleteMsg(m.syncErr)
		}

		update, ok := <-ch
		if !ok {
			return syncCompleteMsg(m.syncErr)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) waitForFrame() tea.Cmd {
	ch := m.frames
	return func() tea.Msg {
		bins, ok := <-ch
		if !ok {
			return nil
		}
		return frameMsg(bins)
	}
}

func (m *Model) waitForArtwork() tea.Cmd {
	ch := m.player.Artwork()
	return func() tea.Msg {
		up, ok := <-ch
		if !ok {
			return nil
		}
		return artworkMsg(up)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg() })
}

// do runs fn off the update loop. The previous error is cleared when the action starts,
// so a late success cannot hide the error of a newer action.
func (m *Model) do(fn func() error) tea.Cmd {
	m.err = nil
	return func() tea.Msg { return actionDoneMsg(fn()) }
}

func (m *Model) playlistCmd(note string, fn func() error) tea.Cmd {
	return func() tea.Msg { return playlistsChangedMsg(note, fn()) }
}

func (m *Model) seek(delta float64) {
	if err := m.player.Seek(m.player.Snapshot().Position + delta); err != nil {
		m.err = err
	}
	m.snap = m.player.Snapshot()
}

func (m *Model) fftSize() int {
	if m.expanded.Load() {
		return m.fft[1]
	}
	return m.fft[0]
}

func (m *Model) selectedTrack() (models.Track, bool) {
	item, ok := m.trackList.SelectedItem().(trackItem)
	if !ok {
		return models.Track{}, false
	}
	return item.track, true
}

func (m *Model) refreshTracks() {
	m.currentID = trackID(m.snap.Track)
	idx := m.trackList.Index()
	m.trackList.SetItems(trackItems(m.player.Visible(m.ctx), m.currentID))

	title := m.player.ViewTitle(m.ctx)
	if q := m.player.Search(); q != "" {
		title = fmt.Sprintf("%s · %q", title, q)
	}
	m.trackList.Title = title

	if n := len(m.trackList.Items()); idx >= n {
		m.trackList.Select(max(n-1, 0))
	}
}

func (m *Model) openPicker(view ViewState) {
	m.view = view
	m.refreshPicker()
	m.pickList.Select(0)
}

func (m *Model) refreshPicker() {
	pls := m.player.Playlists(m.ctx)
	withAll := m.view == PlaylistsView
	m.pickList.SetItems(playlistItems(pls, len(m.player.Tracks()), withAll))
	if withAll {
		m.pickList.Title = "Playlists"
	} else {
		m.pickList.Title = fmt.Sprintf("Add %q to", m.adding.Name)
	}
}

func (m *Model) resize() {
	w := max(m.width-2, 20)
	listHeight := m.height - chromeHeight - compactBars - m.helpHeight()
	m.trackList.SetSize(w, max(listHeight, 4))
	m.pickList.SetSize(w, max(m.height-4, 4))
}

func (m *Model) helpHeight() int {
	if m.help.ShowAll {
		return 5
	}
	return 1
}

func (m *Model) renderLibrary() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n\n")

	width := max(m.width-2, 20)
	if m.expanded.Load() {
		b.WriteString(renderBars(m.bins, width, max(m.height-chromeHeight-m.helpHeight(), compactBars)))
	} else {
		b.WriteString(m.trackList.View())
		b.WriteString("\n")
		b.WriteString(renderBars(m.bins, width, compactBars))
	}
	b.WriteString("\n")

	if m.view == SearchView {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.renderStatus())
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	parts := []string{styles.accent.Render("nova")}
	if m.source != "" {
		parts = append(parts, styles.help.Render(m.source))
	}
	if m.session != nil {
		switch state := m.session.State(); state {
		case auth.Connected:
			parts = append(parts, styles.ok.Render(state.String()))
		case auth.Connecting:
			parts = append(parts, styles.warn.Render(state.String()))
		default:
			parts = append(parts, styles.help.Render(state.String()+" (c to connect)"))
		}
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderNowPlaying() string {
	snap := m.snap
	if snap.Track == nil {
		return styles.help.Render("Nothing selected") + "\n\n"
	}
	t := *snap.Track

	title := fmt.Sprintf("%s %s", m.stateIcon(snap.State), styles.accent.Render(t.Name))

	meta := t.Artist
	if t.Album != "" {
		meta = fmt.Sprintf("%s • %s", meta, t.Album)
	}
	if label := coverLabel(m.coverFor(t)); label != "" {
		meta = fmt.Sprintf("%s • %s", meta, label)
	}

	duration := snap.Duration
	if duration <= 0 {
		duration = t.Duration
	}
	shuffle := "shuffle off"
	if m.player.Shuffle() {
		shuffle = "shuffle on"
	}
	controls := fmt.Sprintf("vol %d%%  %s  repeat %s", int(snap.Volume*100+0.5), shuffle, m.player.Repeat())

	barWidth := max(m.width-len(controls)-20, 10)
	filled, empty := progressBar(snap.Position, duration, barWidth)
	seekLine := fmt.Sprintf("%s %s%s %s  %s",
		formatClock(snap.Position),
		styles.accent.Render(filled),
		styles.help.Render(empty),
		formatClock(duration),
		styles.help.Render(controls),
	)
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.help.Render(meta), seekLine)
}

func (m *Model) renderStatus() string {
	switch {
	case m.syncing:
		msg := m.progress.Message
		if msg == "" {
			msg = "Syncing library..."
		}
		return fmt.Sprintf("%s %s", m.spinner.View(), msg)
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.snap.State == audio.Errored && m.snap.Err != nil:
		return styles.warn.Render(fmt.Sprintf("Playback failed: %v", m.snap.Err))
	case m.note != "":
		return styles.ok.Render(m.note)
	}
	return ""
}

func (m *Model) stateIcon(state audio.State) string {
	switch state {
	case audio.Playing:
		return styles.ok.Render("▶")
	case audio.Paused:
		return styles.warn.Render("⏸")
	case audio.Loading:
		return m.spinner.View()
	case audio.Errored:
		return styles.err.Render("✗")
	default:
		return styles.help.Render("■")
	}
}

func (m *Model) coverFor(t models.Track) string {
	if art, ok := m.covers[t.ID]; ok {
		return art
	}
	return t.CoverArt
}

func coverLabel(art string) string {
	switch {
	case art == "":
		return ""
	case strings.HasPrefix(art, "data:"):
		return "embedded art"
	default:
		return "cover art"
	}
}

func newInput(prompt, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.PromptStyle = styles.accent
	return in
}

func trackID(t *models.Track) string {
	if t == nil {
		return ""
	}
	return t.ID
}
