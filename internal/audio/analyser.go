package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser defaults, matching a browser AnalyserNode.
const (
	RingSize        = 2048
	MinDecibels     = -100.0
	MaxDecibels     = -30.0
	SmoothingFactor = 0.8
	DefaultFFTSize  = 256
	ExpandedFFTSize = 512
	minFFTSize      = 32
)

// Analyser keeps the most recent mono samples and turns them into byte frequency data.
type Analyser struct {
	mu     sync.Mutex
	ring   [RingSize]float64
	pos    int
	smooth map[int][]float64
	ffts   map[int]*fourier.FFT
	window map[int][]float64
}

func NewAnalyser() *Analyser {
	return &Analyser{
		smooth: make(map[int][]float64),
		ffts:   make(map[int]*fourier.FFT),
		window: make(map[int][]float64),
	}
}

// Write appends stereo frames, downmixed to mono.
func (a *Analyser) Write(samples [][2]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = (s[0] + s[1]) / 2
		a.pos = (a.pos + 1) % RingSize
	}
}

// Reset clears samples and smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring = [RingSize]float64{}
	a.pos = 0
	clear(a.smooth)
}

// FrequencyData returns fftSize/2 bins scaled to 0..255 over the decibel range.
//
// fftSize is rounded to a power of two in [32, 2048]. Each size keeps its own smoothing history.
func (a *Analyser) FrequencyData(fftSize int) []uint8 {
	n := normalizeFFTSize(fftSize)

	a.mu.Lock()
	defer a.mu.Unlock()

	seq := make([]float64, n)
	start := (a.pos - n + RingSize) % RingSize
	win := a.windowLocked(n)
	for i := range seq {
		seq[i] = a.ring[(start+i)%RingSize] * win[i]
	}

	fft, ok := a.ffts[n]
	if !ok {
		fft = fourier.NewFFT(n)
		a.ffts[n] = fft
	}
	coeffs := fft.Coefficients(nil, seq)

	bins := n / 2
	prev, ok := a.smooth[n]
	if !ok {
		prev = make([]float64, bins)
		a.smooth[n] = prev
	}

	out := make([]uint8, bins)
	scale := 255 / (MaxDecibels - MinDecibels)
	for k := 0; k < bins; k++ {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		prev[k] = SmoothingFactor*prev[k] + (1-SmoothingFactor)*mag

		db := MinDecibels
		if prev[k] > 0 {
			db = 20 * math.Log10(prev[k])
		}
		v := scale * (db - MinDecibels)
		out[k] = uint8(math.Max(0, math.Min(255, v)))
	}
	return out
}

// windowLocked returns a cached Blackman window of length n.
func (a *Analyser) windowLocked(n int) []float64 {
	if w, ok := a.window[n]; ok {
		return w
	}
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	a.window[n] = w
	return w
}

func normalizeFFTSize(n int) int {
	if n <= 0 {
		return DefaultFFTSize
	}
	size := minFFTSize
	for size < n && size < RingSize {
		size <<= 1
	}
	return size
}
