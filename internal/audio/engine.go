// package audio binds the current track to a media element and exposes its live state
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
)

// State is the playback state of the [Engine].
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Errored:
		return "error"
	default:
		return "idle"
	}
}

// Sequencer advances to the next track when one ends.
type Sequencer interface {
	Next(ctx context.Context) error
}

// Snapshot is a consistent view of the engine for display.
type Snapshot struct {
	State    State
	Track    *models.Track
	Position float64
	Duration float64
	Volume   float64
	Err      error
	CanPlay  bool
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Element   Element
	Analyser  *Analyser
	Artwork   *ArtworkProbe
	Repeat    func() models.RepeatMode
	Sequencer Sequencer
	Volume    float64
	Logger    *log.Logger
}

type playOp struct {
	done chan struct{}
}

// Engine owns the single media element and the playback state machine.
//
// Every load bumps a generation. Completions from an older generation are dropped.
// A pause issued while a play is in flight waits for that play to settle first.
type Engine struct {
	el       Element
	analyser *Analyser
	artwork  *ArtworkProbe
	repeat   func() models.RepeatMode
	logger   *log.Logger

	mu        sync.Mutex
	seq       Sequencer
	state     State
	track     *models.Track
	err       error
	volume    float64
	gen       uint64
	loadedAny bool
	inflight  *playOp
	subs      []chan ArtworkUpgrade
	closed    bool
}

func NewEngine(opts EngineOpts) *Engine {
	if opts.Analyser == nil {
		opts.Analyser = NewAnalyser()
	}
	if opts.Repeat == nil {
		opts.Repeat = func() models.RepeatMode { return models.RepeatNone }
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Volume == 0 {
		opts.Volume = 0.8
	}

	e := &Engine{
		el:       opts.Element,
		analyser: opts.Analyser,
		artwork:  opts.Artwork,
		repeat:   opts.Repeat,
		seq:      opts.Sequencer,
		volume:   clamp(opts.Volume, 0, 1),
		logger:   shared.WithLogger(opts.Logger, "component", "audio"),
	}
	e.el.SetVolume(e.volume)
	e.el.SetEndedHandler(e.handleEnded)
	return e
}

// SetSequencer sets what runs when a track ends without repeat one.
func (e *Engine) SetSequencer(s Sequencer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq = s
}

// Analyser returns the analysis tap fed by the element.
func (e *Engine) Analyser() *Analyser {
	return e.analyser
}

// Load binds track to the element. The same track id only updates metadata.
//
// A play still in flight for the previous track settles before the element is rebound.
//
// The first load after startup stays paused. Later loads try to play; an aborted or
// blocked autoplay falls back to paused without an error.
func (e *Engine) Load(ctx context.Context, track models.Track) error {
	e.mu.Lock()
	if e.track != nil && e.track.ID == track.ID {
		e.track = &track
		e.mu.Unlock()
		return nil
	}

	e.gen++
	gen := e.gen
	autoplay := e.loadedAny
	e.loadedAny = true
	e.track = &track
	e.state = Loading
	e.err = nil
	prev := e.inflight
	e.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	e.logger.Debug("loading track", "id", track.ID, "name", track.Name)
	e.analyser.Reset()
	err := e.el.Load(ctx, Source{URL: track.URL, MimeType: track.MimeType})

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		if !errors.Is(err, shared.ErrMediaLoadFailure) {
			err = fmt.Errorf("%w: %v", shared.ErrMediaLoadFailure, err)
		}
		e.state = Errored
		e.err = err
		e.mu.Unlock()
		e.logger.Error("failed to load audio source", "id", track.ID, "error", err)
		return err
	}
	e.state = Paused
	e.mu.Unlock()

	if e.artwork.Wants(track) {
		go e.probeArtwork(track)
	}

	if !autoplay {
		return nil
	}
	return e.play(ctx, gen, true)
}

// play runs one play attempt for generation gen. Only the latest attempt is tracked.
func (e *Engine) play(ctx context.Context, gen uint64, auto bool) error {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return nil
	}
	op := &playOp{done: make(chan struct{})}
	e.inflight = op
	e.mu.Unlock()

	err := e.el.Play(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight == op {
		e.inflight = nil
	}
	close(op.done)

	if gen != e.gen {
		return nil
	}

	switch {
	case err == nil:
		e.state = Playing
		e.err = nil
		return nil
	case errors.Is(err, shared.ErrPlayAborted), errors.Is(err, shared.ErrAutoplayBlocked):
		e.state = Paused
		if auto {
			e.logger.Debug("autoplay prevented", "error", err)
			return nil
		}
		return err
	default:
		e.state = Errored
		e.err = fmt.Errorf("%w: %v", shared.ErrPlaybackRejected, err)
		e.logger.Warn("playback rejected", "error", err)
		return e.err
	}
}

// TogglePlayPause pauses when playing (or about to be), otherwise plays.
//
// A track that failed to load cannot be played: the element is paused and
// [shared.ErrMediaLoadFailure] is returned.
func (e *Engine) TogglePlayPause(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Playing || e.inflight != nil {
		e.mu.Unlock()
		return e.Pause()
	}

	switch {
	case e.track == nil, e.state == Loading:
		e.mu.Unlock()
		return nil
	case e.state == Errored && errors.Is(e.err, shared.ErrMediaLoadFailure):
		err := e.err
		e.mu.Unlock()
		if perr := e.el.Pause(); perr != nil {
			e.logger.Warn("pause failed", "error", perr)
		}
		return err
	}
	gen := e.gen
	e.mu.Unlock()

	return e.play(ctx, gen, false)
}

// Pause waits for an in-flight play to settle, then pauses.
func (e *Engine) Pause() error {
	e.mu.Lock()
	op := e.inflight
	gen := e.gen
	e.mu.Unlock()

	if op != nil {
		<-op.done
	}

	if err := e.el.Pause(); err != nil {
		return fmt.Errorf("pause failed: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.gen && e.state == Playing {
		e.state = Paused
	}
	return nil
}

// Seek jumps to seconds, clamped to [0, duration].
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	loaded := e.track != nil && (e.state == Playing || e.state == Paused)
	e.mu.Unlock()
	if !loaded {
		return nil
	}

	return e.el.Seek(clamp(seconds, 0, e.el.Duration()))
}

// SetVolume sets a linear level, clamped to [0, 1].
func (e *Engine) SetVolume(v float64) {
	v = clamp(v, 0, 1)
	e.mu.Lock()
	e.volume = v
	e.mu.Unlock()
	e.el.SetVolume(v)
}

// Snapshot returns the current state for display.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		State:   e.state,
		Volume:  e.volume,
		Err:     e.err,
		CanPlay: e.track != nil && !(e.state == Errored && errors.Is(e.err, shared.ErrMediaLoadFailure)),
	}
	if e.track != nil {
		t := *e.track
		snap.Track = &t
	}
	bound := e.state == Playing || e.state == Paused
	e.mu.Unlock()

	if bound {
		snap.Position = e.el.Position()
		snap.Duration = e.el.Duration()
	}
	if snap.Duration == 0 && snap.Track != nil {
		snap.Duration = snap.Track.Duration
	}
	return snap
}

// State returns the current playback state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Current returns the bound track.
func (e *Engine) Current() (models.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.track == nil {
		return models.Track{}, false
	}
	return *e.track, true
}

func (e *Engine) handleEnded() {
	e.mu.Lock()
	gen := e.gen
	seq := e.seq
	if e.state == Playing {
		e.state = Paused
	}
	e.mu.Unlock()

	ctx := context.Background()
	if e.repeat() == models.RepeatOne {
		if err := e.el.Seek(0); err != nil {
			e.logger.Warn("replay seek failed", "error", err)
		}
		if err := e.play(ctx, gen, false); err != nil {
			e.logger.Warn("replay failed", "error", err)
		}
		return
	}

	if seq == nil {
		return
	}
	if err := seq.Next(ctx); err != nil {
		e.logger.Warn("advance failed", "error", err)
	}
}

// Frames emits frequency data at fps while playing. Nothing is sent in any other state.
//
// fftSize is read every frame, so resolution can change without rebinding the element.
// Slow receivers miss frames. The channel closes when ctx ends.
func (e *Engine) Frames(ctx context.Context, fps int, fftSize func() int) <-chan []uint8 {
	if fps <= 0 {
		fps = 30
	}
	out := make(chan []uint8, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if e.State() != Playing {
					continue
				}
				frame := e.analyser.FrequencyData(fftSize())
				select {
				case out <- frame:
				default:
				}
			}
		}
	}()
	return out
}

// Subscribe returns a channel of artwork upgrades. It closes when the engine closes.
func (e *Engine) Subscribe() <-chan ArtworkUpgrade {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan ArtworkUpgrade, 8)
	if e.closed {
		close(ch)
		return ch
	}
	e.subs = append(e.subs, ch)
	return ch
}

func (e *Engine) probeArtwork(track models.Track) {
	up, err := e.artwork.Probe(track)
	if err != nil {
		e.logger.Debug("no embedded artwork", "id", track.ID, "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.track != nil && e.track.ID == up.TrackID {
		e.track.CoverArt = up.CoverArt
	}
	for _, ch := range e.subs {
		select {
		case ch <- up:
		default:
		}
	}
}

// Close stops playback and closes subscriber channels.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.gen++
	e.state = Idle
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	return e.el.Close()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}
