package nes

import "math"

// firstOrderFilter implements y[n] = B0*x[n] + B1*x[n-1] - A1*y[n-1].
type firstOrderFilter struct {
	b0, b1, a1 float32
	prevX      float32
	prevY      float32
}

func (f *firstOrderFilter) Step(x float32) float32 {
	y := f.b0*x + f.b1*f.prevX - f.a1*f.prevY
	f.prevX = x
	f.prevY = y
	return y
}

func lowPassFilter(sampleRate, cutoff float32) *firstOrderFilter {
	c := sampleRate / math.Pi / cutoff
	a0i := 1 / (1 + c)
	return &firstOrderFilter{
		b0: a0i,
		b1: a0i,
		a1: (1 - c) * a0i,
	}
}

func highPassFilter(sampleRate, cutoff float32) *firstOrderFilter {
	c := sampleRate / math.Pi / cutoff
	a0i := 1 / (1 + c)
	return &firstOrderFilter{
		b0: c * a0i,
		b1: -c * a0i,
		a1: (1 - c) * a0i,
	}
}

type filterChain []*firstOrderFilter

// newFilterChain approximates the RF path of the console: two high-pass
// stages at 90 Hz and 440 Hz and a low-pass stage at 14 kHz.
func newFilterChain(sampleRate float32) filterChain {
	return filterChain{
		highPassFilter(sampleRate, 90),
		highPassFilter(sampleRate, 440),
		lowPassFilter(sampleRate, 14000),
	}
}

func (fc filterChain) Step(x float32) float32 {
	for _, f := range fc {
		x = f.Step(x)
	}
	return x
}
