package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// fakeOutput collects scheduled streamers so tests can pull samples by hand.
type fakeOutput struct {
	mu        sync.Mutex
	streamers []beep.Streamer
	inits     int
	initErr   error
}

func (o *fakeOutput) Init(beep.SampleRate) error {
	o.inits++
	return o.initErr
}

func (o *fakeOutput) Play(s beep.Streamer) {
	o.streamers = append(o.streamers, s)
}

func (o *fakeOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamers = nil
}

func (o *fakeOutput) Lock()   { o.mu.Lock() }
func (o *fakeOutput) Unlock() { o.mu.Unlock() }

// drain pulls from s until it reports exhaustion.
func (o *fakeOutput) drain(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for range 10000 {
		o.Lock()
		n, ok := s.Stream(buf)
		o.Unlock()
		total += n
		if !ok {
			break
		}
	}
	return total
}

// wavBytes encodes frames of a 1 kHz tone as 16-bit stereo PCM.
func wavBytes(frames int) []byte {
	const rate = 44100
	dataLen := frames * 4

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for i := range frames {
		v := int16(8000 * math.Sin(2*math.Pi*1000*float64(i)/rate))
		binary.Write(&buf, binary.LittleEndian, v)
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		mime, url, want string
	}{
		{"audio/mpeg", "", "mp3"},
		{"audio/MPEG; charset=binary", "", "mp3"},
		{"audio/x-wav", "", "wav"},
		{"audio/flac", "", "flac"},
		{"application/ogg", "", "vorbis"},
		{"", "https://example.com/song.MP3?alt=media", "mp3"},
		{"application/octet-stream", "/music/a.flac", "flac"},
		{"", "song.oga", "vorbis"},
		{"audio/aac", "song.m4a", ""},
		{"audio/mp4", "", ""},
		{"", "https://example.com/song.m4a?alt=media", ""},
	}
	for _, tt := range tests {
		if got := codecFor(tt.mime, tt.url); got != tt.want {
			t.Errorf("codecFor(%q, %q) = %q, want %q", tt.mime, tt.url, got, tt.want)
		}
	}
}

func TestApplyLevel(t *testing.T) {
	tests := []struct {
		level  float64
		want   float64
		silent bool
	}{
		{0, MinVolumeDB, true},
		{1, 0, false},
		{0.25, MinVolumeDB / 2, false},
	}
	for _, tt := range tests {
		vol := &effects.Volume{Base: 2}
		applyLevel(vol, tt.level)
		if vol.Silent != tt.silent || math.Abs(vol.Volume-tt.want) > 1e-9 {
			t.Errorf("applyLevel(%v) = %v silent=%v, want %v silent=%v", tt.level, vol.Volume, vol.Silent, tt.want, tt.silent)
		}
	}
}

func TestBeepElement(t *testing.T) {
	ctx := context.Background()
	blobs := media.NewBlobStore()
	opener := NewSourceOpener(blobs, nil)

	t.Run("plays to the end", func(t *testing.T) {
		h := blobs.Create(wavBytes(4410), "audio/wav")
		defer h.Release()

		out := &fakeOutput{}
		analyser := NewAnalyser()
		el := NewBeepElement(opener, out, analyser)
		ended := make(chan struct{}, 1)
		el.SetEndedHandler(func() { ended <- struct{}{} })

		if err := el.Load(ctx, Source{URL: h.URL}); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if d := el.Duration(); math.Abs(d-0.1) > 0.001 {
			t.Errorf("expected 0.1s duration, got %v", d)
		}

		if err := el.Play(ctx); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if err := el.Play(ctx); err != nil {
			t.Fatalf("second play failed: %v", err)
		}
		if len(out.streamers) != 1 {
			t.Fatalf("expected one scheduled pipeline, got %d", len(out.streamers))
		}

		if n := out.drain(out.streamers[0]); n != 4410 {
			t.Errorf("expected 4410 frames, got %d", n)
		}

		select {
		case <-ended:
		case <-time.After(time.Second):
			t.Fatal("ended handler did not run")
		}

		peak := uint8(0)
		for _, v := range analyser.FrequencyData(DefaultFFTSize) {
			peak = max(peak, v)
		}
		if peak == 0 {
			t.Error("expected analyser to see the tone")
		}
	})

	t.Run("seek and position", func(t *testing.T) {
		h := blobs.Create(wavBytes(44100), "audio/wav")
		defer h.Release()

		el := NewBeepElement(opener, &fakeOutput{}, nil)
		if err := el.Load(ctx, Source{URL: h.URL}); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if err := el.Seek(0.5); err != nil {
			t.Fatalf("seek failed: %v", err)
		}
		if p := el.Position(); math.Abs(p-0.5) > 0.001 {
			t.Errorf("expected position 0.5, got %v", p)
		}
		if err := el.Seek(10); err != nil {
			t.Fatalf("seek failed: %v", err)
		}
		if p := el.Position(); math.Abs(p-1) > 0.001 {
			t.Errorf("expected position clamped to 1, got %v", p)
		}
	})

	t.Run("pause keeps the pipeline", func(t *testing.T) {
		h := blobs.Create(wavBytes(4410), "audio/wav")
		defer h.Release()

		out := &fakeOutput{}
		el := NewBeepElement(opener, out, nil)
		el.Load(ctx, Source{URL: h.URL})
		el.Play(ctx)
		el.Pause()

		buf := make([][2]float64, 64)
		out.Lock()
		n, ok := out.streamers[0].Stream(buf)
		out.Unlock()
		if !ok || n != 64 {
			t.Fatalf("expected paused silence, got n=%d ok=%v", n, ok)
		}
		if pos := el.Position(); pos != 0 {
			t.Errorf("paused stream should not advance, got %v", pos)
		}
	})

	t.Run("load failures", func(t *testing.T) {
		garbage := blobs.Create([]byte("not audio at all"), "audio/wav")
		unknown := blobs.Create(wavBytes(10), "audio/aac")
		revoked := blobs.Create(wavBytes(10), "audio/wav")
		revoked.Release()
		defer garbage.Release()
		defer unknown.Release()

		el := NewBeepElement(opener, &fakeOutput{}, nil)
		for _, url := range []string{garbage.URL, unknown.URL, revoked.URL} {
			if err := el.Load(ctx, Source{URL: url}); !errors.Is(err, shared.ErrMediaLoadFailure) {
				t.Errorf("expected ErrMediaLoadFailure for %s, got %v", url, err)
			}
		}
	})

	t.Run("failed load stops the previous track", func(t *testing.T) {
		good := blobs.Create(wavBytes(44100), "audio/wav")
		bad := blobs.Create([]byte("not audio at all"), "audio/wav")
		defer good.Release()
		defer bad.Release()

		out := &fakeOutput{}
		el := NewBeepElement(opener, out, nil)
		if err := el.Load(ctx, Source{URL: good.URL}); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		el.mu.Lock()
		oldCtrl := el.ctrl
		el.mu.Unlock()
		if err := el.Play(ctx); err != nil {
			t.Fatalf("play failed: %v", err)
		}

		if err := el.Load(ctx, Source{URL: bad.URL}); !errors.Is(err, shared.ErrMediaLoadFailure) {
			t.Fatalf("expected ErrMediaLoadFailure, got %v", err)
		}

		out.Lock()
		scheduled, paused := len(out.streamers), oldCtrl.Paused
		out.Unlock()
		if scheduled != 0 {
			t.Errorf("expected the old pipeline to be unscheduled, %d still on output", scheduled)
		}
		if !paused {
			t.Error("expected the old stream to be paused")
		}
		if d := el.Duration(); d != 0 {
			t.Errorf("expected nothing bound after a failed load, got duration %v", d)
		}
		if err := el.Play(ctx); !errors.Is(err, shared.ErrMediaLoadFailure) {
			t.Errorf("expected play to refuse after a failed load, got %v", err)
		}
	})

	t.Run("play errors", func(t *testing.T) {
		el := NewBeepElement(opener, &fakeOutput{}, nil)
		if err := el.Play(ctx); !errors.Is(err, shared.ErrMediaLoadFailure) {
			t.Errorf("expected ErrMediaLoadFailure with nothing loaded, got %v", err)
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if err := el.Play(cancelled); !errors.Is(err, shared.ErrPlayAborted) {
			t.Errorf("expected ErrPlayAborted, got %v", err)
		}
	})
}
