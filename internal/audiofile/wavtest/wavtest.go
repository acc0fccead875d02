// Package wavtest writes small PCM WAV fixtures for tests.
package wavtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Sine describes a fixture: every channel carries the same sine wave.
type Sine struct {
	Channels   int
	SampleRate int
	Duration   time.Duration
	Frequency  float64
	Amplitude  float64
}

// Write encodes s as 16-bit PCM into dir/name and returns the path.
func Write(t testing.TB, dir, name string, s Sine) string {
	t.Helper()

	frames := int(s.Duration.Seconds() * float64(s.SampleRate))
	dataSize := frames * s.Channels * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	write(t, &buf, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(t, &buf, uint32(16))
	write(t, &buf, uint16(1))
	write(t, &buf, uint16(s.Channels))
	write(t, &buf, uint32(s.SampleRate))
	write(t, &buf, uint32(s.SampleRate*s.Channels*2))
	write(t, &buf, uint16(s.Channels*2))
	write(t, &buf, uint16(16))
	buf.WriteString("data")
	write(t, &buf, uint32(dataSize))

	for i := 0; i < frames; i++ {
		v := s.Amplitude * math.Sin(2*math.Pi*s.Frequency*float64(i)/float64(s.SampleRate))
		sample := int16(v * math.MaxInt16)
		for c := 0; c < s.Channels; c++ {
			write(t, &buf, sample)
		}
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav fixture: %v", err)
	}
	return path
}

func write(t testing.TB, buf *bytes.Buffer, v any) {
	t.Helper()
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		t.Fatalf("encode wav fixture: %v", err)
	}
}
