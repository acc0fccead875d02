package audiofile

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/mjibson/go-dsp/wav"
	"gonum.org/v1/gonum/floats"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// readChunk bounds how many frames are read per call.
const readChunk = 4096

// sampleReader yields interleaved samples scaled to [-1, 1].
type sampleReader interface {
	ReadFloats(n int) ([]float32, error)
}

// signedReader reads *wav.Wav samples centred on zero. Its own ReadFloats
// scales integer PCM onto [0, 1].
type signedReader struct {
	w *wav.Wav
}

func (r signedReader) ReadFloats(n int) ([]float32, error) {
	d, err := r.w.ReadSamples(n)
	if err != nil {
		return nil, err
	}
	return toSigned(d)
}

func toSigned(d interface{}) ([]float32, error) {
	switch d := d.(type) {
	case []uint8:
		f := make([]float32, len(d))
		for i, v := range d {
			f[i] = (float32(v) - 128) / 128
		}
		return f, nil
	case []int16:
		f := make([]float32, len(d))
		for i, v := range d {
			f[i] = float32(v) / 32768
		}
		return f, nil
	case []float32:
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported sample type %T", d)
	}
}

// DecodePeaks decodes [start, end) of the file and reduces it to width pixel
// columns. For every column and channel it emits the maximum, followed by the
// minimum when wantMinima is set. Without minima the single value per channel
// is the absolute peak. Values are in [-1, 1].
//
// A missing or unreadable file returns zero channels and no values.
func (l *Library) DecodePeaks(id FileID, start, end time.Duration, width int, wantMinima bool) (int, []float32) {
	path, ok := l.Path(id)
	if !ok {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	w, err := wav.New(f)
	if err != nil || w.NumChannels == 0 || w.SampleRate == 0 || !supported(w.Header) {
		return 0, nil
	}

	rate := float64(w.SampleRate)
	first := int64(start.Seconds() * rate)
	last := int64(end.Seconds() * rate)
	if first < 0 {
		first = 0
	}

	channels := int(w.NumChannels)
	total := int64(w.Samples / channels)
	return channels, reducePeaks(signedReader{w: w}, channels, first, last, total, width, wantMinima)
}

func supported(h wav.Header) bool {
	switch h.AudioFormat {
	case formatPCM:
		return h.BitsPerSample == 8 || h.BitsPerSample == 16
	case formatIEEEFloat:
		return h.BitsPerSample == 32
	default:
		return false
	}
}

// reducePeaks reads frames [first, last) from r and folds them into width
// columns. The data holds total frames; columns past its end stay zero and a
// column it ends inside covers only the frames that exist.
func reducePeaks(r sampleReader, channels int, first, last, total int64, width int, wantMinima bool) []float32 {
	if width <= 0 {
		return []float32{}
	}
	stride := channels
	if wantMinima {
		stride *= 2
	}
	out := make([]float32, width*stride)
	if last <= first || first >= total {
		return out
	}

	if !skipFrames(r, channels, first) {
		return out
	}

	span := last - first
	avail := min(last, total) - first
	hi := make([]float64, channels)
	lo := make([]float64, channels)
	lanes := make([][]float64, channels)
	var pos int64

	for x := 0; x < width; x++ {
		bucketEnd := span * int64(x+1) / int64(width)
		if bucketEnd <= pos {
			// More columns than frames: repeat the previous column.
			if x > 0 {
				copy(out[x*stride:(x+1)*stride], out[(x-1)*stride:x*stride])
			}
			continue
		}
		stop := min(bucketEnd, avail)
		if stop <= pos {
			break
		}

		for c := range hi {
			hi[c], lo[c] = math.Inf(-1), math.Inf(1)
		}
		read := false
		for pos < stop {
			n := min(stop-pos, readChunk)
			samples, err := r.ReadFloats(int(n) * channels)
			if err != nil || len(samples) < int(n)*channels {
				avail = pos
				break
			}
			for c := range lanes {
				lanes[c] = lanes[c][:0]
			}
			for i, s := range samples {
				lanes[i%channels] = append(lanes[i%channels], float64(s))
			}
			for c, lane := range lanes {
				hi[c] = math.Max(hi[c], floats.Max(lane))
				lo[c] = math.Min(lo[c], floats.Min(lane))
			}
			pos += n
			read = true
		}
		if !read {
			break
		}

		group := out[x*stride : (x+1)*stride]
		for c := range hi {
			if wantMinima {
				group[2*c] = float32(hi[c])
				group[2*c+1] = float32(lo[c])
			} else {
				group[c] = float32(math.Max(math.Abs(hi[c]), math.Abs(lo[c])))
			}
		}
		if pos < bucketEnd {
			break
		}
	}
	return out
}

// skipFrames discards n frames. It reports false if the data ends first.
func skipFrames(r sampleReader, channels int, n int64) bool {
	for n > 0 {
		chunk := min(n, readChunk)
		samples, err := r.ReadFloats(int(chunk) * channels)
		if err != nil || len(samples) < int(chunk)*channels {
			return false
		}
		n -= chunk
	}
	return true
}
