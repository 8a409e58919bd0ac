package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	OutputSampleRate  = beep.SampleRate(44100)
	SpeakerBufferSize = 100 * time.Millisecond
	ResampleQuality   = 4
	MinVolumeDB       = -10.0
	VolumeCurve       = 0.5
)

// Output is the device streamers are mixed into. [SpeakerOutput] is the real one.
type Output interface {
	Init(rate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// SpeakerOutput plays through the system audio device.
type SpeakerOutput struct {
	once sync.Once
	err  error
}

func (o *SpeakerOutput) Init(rate beep.SampleRate) error {
	o.once.Do(func() {
		if err := speaker.Init(rate, rate.N(SpeakerBufferSize)); err != nil {
			o.err = fmt.Errorf("failed to initialize speaker: %w", err)
		}
	})
	return o.err
}

func (o *SpeakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (o *SpeakerOutput) Clear()               { speaker.Clear() }
func (o *SpeakerOutput) Lock()                { speaker.Lock() }
func (o *SpeakerOutput) Unlock()              { speaker.Unlock() }

// SampleSink receives every stereo frame sent to the output.
type SampleSink interface {
	Write(samples [][2]float64)
}

// BeepElement is an [Element] that decodes with beep and plays through an [Output].
//
// The decoded stream is wrapped as stream -> ctrl -> volume -> tap, followed by a callback that
// reports the end of the track.
type BeepElement struct {
	opener Opener
	output Output
	sink   SampleSink

	mu        sync.Mutex
	stream    beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	level     float64
	scheduled bool
	gen       uint64
	onEnded   func()
}

func NewBeepElement(opener Opener, output Output, sink SampleSink) *BeepElement {
	if output == nil {
		output = &SpeakerOutput{}
	}
	return &BeepElement{opener: opener, output: output, sink: sink, level: 0.8}
}

// Load decodes src and parks it paused at position 0.
//
// The previous stream is stopped and closed before src is opened, so a failed load
// leaves nothing playing.
func (b *BeepElement) Load(ctx context.Context, src Source) error {
	if err := b.stop(); err != nil {
		return fmt.Errorf("failed to close previous stream: %w", err)
	}

	r, mime, err := b.opener(ctx, src)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMediaLoadFailure, err)
	}

	stream, format, err := decode(r, mime, src.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMediaLoadFailure, err)
	}

	b.output.Lock()
	b.mu.Lock()
	b.gen++
	b.stream = stream
	b.format = format
	b.ctrl = &beep.Ctrl{Streamer: stream, Paused: true}
	b.volume = &effects.Volume{Streamer: b.ctrl, Base: 2}
	applyLevel(b.volume, b.level)
	b.scheduled = false
	b.mu.Unlock()
	b.output.Unlock()
	return nil
}

// stop unschedules and closes the current stream. Its end callback is dropped.
func (b *BeepElement) stop() error {
	b.output.Clear()

	b.output.Lock()
	b.mu.Lock()
	b.gen++
	if b.ctrl != nil {
		b.ctrl.Paused = true
	}
	old := b.stream
	b.stream, b.ctrl, b.volume = nil, nil, nil
	b.scheduled = false
	b.mu.Unlock()
	b.output.Unlock()

	if old == nil {
		return nil
	}
	return old.Close()
}

// Play starts or resumes output.
func (b *BeepElement) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPlayAborted, err)
	}
	if err := b.output.Init(OutputSampleRate); err != nil {
		return err
	}

	b.mu.Lock()
	if b.stream == nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: nothing loaded", shared.ErrMediaLoadFailure)
	}

	var pipeline beep.Streamer
	if !b.scheduled {
		gen := b.gen
		var s beep.Streamer = b.volume
		if b.format.SampleRate != OutputSampleRate {
			s = beep.Resample(ResampleQuality, b.format.SampleRate, OutputSampleRate, s)
		}
		if b.sink != nil {
			s = &tap{Streamer: s, sink: b.sink}
		}
		pipeline = beep.Seq(s, beep.Callback(func() { go b.ended(gen) }))
		b.scheduled = true
	}
	ctrl := b.ctrl
	b.mu.Unlock()

	b.output.Lock()
	ctrl.Paused = false
	b.output.Unlock()

	if pipeline != nil {
		b.output.Play(pipeline)
	}
	return nil
}

func (b *BeepElement) ended(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.scheduled = false
	fn := b.onEnded
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (b *BeepElement) Pause() error {
	b.mu.Lock()
	ctrl := b.ctrl
	b.mu.Unlock()
	if ctrl == nil {
		return nil
	}

	b.output.Lock()
	ctrl.Paused = true
	b.output.Unlock()
	return nil
}

// Seek moves to seconds, clamped to the stream.
func (b *BeepElement) Seek(seconds float64) error {
	b.output.Lock()
	defer b.output.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil {
		return nil
	}
	n := b.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	n = max(0, min(n, b.stream.Len()))
	if err := b.stream.Seek(n); err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	return nil
}

// SetVolume sets a linear level in [0, 1], mapped onto a perceptual curve.
func (b *BeepElement) SetVolume(v float64) {
	b.output.Lock()
	defer b.output.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level = v
	if b.volume != nil {
		applyLevel(b.volume, v)
	}
}

func applyLevel(vol *effects.Volume, v float64) {
	vol.Silent = v <= 0
	switch {
	case v <= 0:
		vol.Volume = MinVolumeDB
	case v >= 1:
		vol.Volume = 0
	default:
		vol.Volume = (1 - math.Pow(v, VolumeCurve)) * MinVolumeDB
	}
}

func (b *BeepElement) Position() float64 {
	b.output.Lock()
	defer b.output.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil {
		return 0
	}
	return b.format.SampleRate.D(b.stream.Position()).Seconds()
}

func (b *BeepElement) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil {
		return 0
	}
	return b.format.SampleRate.D(b.stream.Len()).Seconds()
}

func (b *BeepElement) SetEndedHandler(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEnded = fn
}

func (b *BeepElement) Close() error {
	return b.stop()
}

// decode picks a decoder from the mime type, falling back to the URL extension.
func decode(r io.ReadSeeker, mime, url string) (beep.StreamSeekCloser, beep.Format, error) {
	rc := readSeekNopCloser{r}
	switch codecFor(mime, url) {
	case "mp3":
		return mp3.Decode(rc)
	case "wav":
		return wav.Decode(rc)
	case "flac":
		return flac.Decode(rc)
	case "vorbis":
		return vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio type %q", mime)
	}
}

func codecFor(mime, url string) string {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch mime {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/ogg", "audio/vorbis", "application/ogg":
		return "vorbis"
	}

	switch strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0])) {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".flac":
		return "flac"
	case ".ogg", ".oga":
		return "vorbis"
	}
	return ""
}

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }

// tap copies every frame it streams into sink.
type tap struct {
	beep.Streamer
	sink SampleSink
}

func (t *tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Streamer.Stream(samples)
	if n > 0 {
		t.sink.Write(samples[:n])
	}
	return n, ok
}
