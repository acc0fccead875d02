package audiofile

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mjibson/go-dsp/wav"
	"golang.org/x/sync/singleflight"
)

// FileID identifies a registered audio file. Zero is never assigned.
type FileID uint32

// Info is the header metadata of an audio file.
type Info struct {
	Channels   int
	SampleRate int
	Duration   time.Duration
}

// Library maps FileIDs to files on disk.
// Thread-safe: Yes. The UI reads metadata while the peak worker decodes.
type Library struct {
	mu     sync.RWMutex
	paths  map[FileID]string
	infos  map[FileID]Info
	nextID FileID

	probes singleflight.Group
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		paths: make(map[FileID]string),
		infos: make(map[FileID]Info),
	}
}

// Register adds a file path and returns its new ID.
// The file does not have to exist yet; a missing file decodes to no channels.
func (l *Library) Register(path string) FileID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.paths[l.nextID] = path
	return l.nextID
}

// Path returns the path registered for id.
func (l *Library) Path(id FileID) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	path, ok := l.paths[id]
	return path, ok
}

// Info returns header metadata for id, probing the file on first use.
// Concurrent probes of the same file share one read.
func (l *Library) Info(id FileID) (Info, error) {
	l.mu.RLock()
	info, cached := l.infos[id]
	path, known := l.paths[id]
	l.mu.RUnlock()

	if cached {
		return info, nil
	}
	if !known {
		return Info{}, fmt.Errorf("audio file %d is not registered", id)
	}

	v, err, _ := l.probes.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		probed, err := probe(path)
		if err != nil {
			return Info{}, err
		}
		l.mu.Lock()
		l.infos[id] = probed
		l.mu.Unlock()
		return probed, nil
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

// probe reads only the WAV header.
func probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w, err := wav.New(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read wav header of %s: %w", path, err)
	}
	return Info{
		Channels:   int(w.NumChannels),
		SampleRate: int(w.SampleRate),
		Duration:   w.Duration,
	}, nil
}
