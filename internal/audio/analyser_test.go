package audio

import (
	"math"
	"testing"
)

func sine(n int, period float64, amp float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := amp * math.Sin(2*math.Pi*float64(i)/period)
		out[i] = [2]float64{v, v}
	}
	return out
}

func TestAnalyser(t *testing.T) {
	t.Run("silence is all zero", func(t *testing.T) {
		a := NewAnalyser()
		for _, v := range a.FrequencyData(DefaultFFTSize) {
			if v != 0 {
				t.Fatalf("expected silent bins, got %d", v)
			}
		}
	})

	t.Run("bin count follows fft size", func(t *testing.T) {
		a := NewAnalyser()
		if got := len(a.FrequencyData(DefaultFFTSize)); got != 128 {
			t.Errorf("expected 128 bins, got %d", got)
		}
		if got := len(a.FrequencyData(ExpandedFFTSize)); got != 256 {
			t.Errorf("expected 256 bins, got %d", got)
		}
	})

	t.Run("sine peaks at its bin", func(t *testing.T) {
		a := NewAnalyser()
		a.Write(sine(RingSize, 256.0/8, 0.01))

		bins := a.FrequencyData(256)
		peak := 0
		for k, v := range bins {
			if v > bins[peak] {
				peak = k
			}
		}
		if peak != 8 {
			t.Errorf("expected peak at bin 8, got %d", peak)
		}
		if bins[8] == 0 || bins[8] == 255 {
			t.Errorf("expected peak inside the decibel range, got %d", bins[8])
		}
		if bins[50] != 0 {
			t.Errorf("expected distant bin to be silent, got %d", bins[50])
		}
	})

	t.Run("smoothing rises over frames", func(t *testing.T) {
		a := NewAnalyser()
		a.Write(sine(RingSize, 32, 0.01))
		first := a.FrequencyData(256)[8]
		second := a.FrequencyData(256)[8]
		if second <= first {
			t.Errorf("expected smoothed value to rise, got %d then %d", first, second)
		}
	})

	t.Run("Reset clears history", func(t *testing.T) {
		a := NewAnalyser()
		a.Write(sine(RingSize, 32, 0.5))
		a.FrequencyData(256)
		a.Reset()
		for _, v := range a.FrequencyData(256) {
			if v != 0 {
				t.Fatalf("expected zero after reset, got %d", v)
			}
		}
	})
}

func TestNormalizeFFTSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultFFTSize},
		{-1, DefaultFFTSize},
		{1, 32},
		{100, 128},
		{256, 256},
		{512, 512},
		{5000, RingSize},
	}
	for _, tt := range tests {
		if got := normalizeFFTSize(tt.in); got != tt.want {
			t.Errorf("normalizeFFTSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
