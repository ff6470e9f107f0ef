// Package wavwriter writes audio output to disk as a WAV file. Samples
// are buffered in memory in their entirety and written on End, so it is
// meant for capturing short recordings and for tests.
package wavwriter

import (
	"fmt"
	"os"

	"github.com/youpy/go-wav"
)

type WavWriter struct {
	filename   string
	sampleRate int
	buffer     []wav.Sample
}

func New(filename string, sampleRate int) *WavWriter {
	return &WavWriter{
		filename:   filename,
		sampleRate: sampleRate,
		buffer:     make([]wav.Sample, 0, sampleRate),
	}
}

// SetAudio appends mixed output samples in the [-1, 1] range.
func (aw *WavWriter) SetAudio(samples []float32) {
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int(s * 32767)
		aw.buffer = append(aw.buffer, wav.Sample{Values: [2]int{v, v}})
	}
}

// End flushes the buffered samples to disk.
func (aw *WavWriter) End() (rerr error) {
	f, err := os.Create(aw.filename)
	if err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavwriter: %w", err)
		}
	}()

	enc := wav.NewWriter(f, uint32(len(aw.buffer)), 1, uint32(aw.sampleRate), 16)
	if enc == nil {
		return fmt.Errorf("wavwriter: bad parameters for wav encoding")
	}
	if err := enc.WriteSamples(aw.buffer); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	return nil
}
