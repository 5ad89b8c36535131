package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// DefaultSampleRate is the speaker rate; files at other rates are resampled.
const DefaultSampleRate beep.SampleRate = 44100

type cachedBuffer struct {
	modTime time.Time
	buf     *beep.Buffer
}

// BeepBackend plays mp3, wav and ogg files through the system speaker.
type BeepBackend struct {
	SampleRate beep.SampleRate

	initOnce sync.Once
	initErr  error

	mu      sync.Mutex
	buffers map[string]cachedBuffer
}

// NewBeepBackend returns a backend that initializes the speaker lazily.
func NewBeepBackend() *BeepBackend {
	return &BeepBackend{SampleRate: DefaultSampleRate, buffers: make(map[string]cachedBuffer)}
}

// Init opens the speaker once. Later calls return the first result.
func (b *BeepBackend) Init() error {
	b.initOnce.Do(func() {
		b.initErr = speaker.Init(b.SampleRate, b.SampleRate.N(time.Second/10))
		if b.initErr != nil {
			log.Printf("Audio disabled: Failed to initialize speaker: %v", b.initErr)
		}
	})
	return b.initErr
}

// Play implements Backend.
func (b *BeepBackend) Play(ctx context.Context, path string) error {
	if err := b.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoPlayer, err)
	}

	buf, err := b.load(path)
	if err != nil {
		return err
	}

	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if rate := buf.Format().SampleRate; rate != b.SampleRate {
		s = beep.Resample(4, rate, b.SampleRate, s)
	}

	done := make(chan struct{}, 1)
	ctrl := &beep.Ctrl{Streamer: s}
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}

// load decodes path into a buffer, reusing the cached copy while the file is
// unchanged.
func (b *BeepBackend) load(path string) (*beep.Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open sound: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.buffers[path]; ok && c.modTime.Equal(info.ModTime()) {
		return c.buf, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound: %w", err)
	}
	defer f.Close()

	streamer, format, err := decode(f, path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	b.buffers[path] = cachedBuffer{modTime: info.ModTime(), buf: buf}
	return buf, nil
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(nopCloser{f})
	case ".wav":
		return wav.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(nopCloser{f})
	}
	return nil, beep.Format{}, fmt.Errorf("unsupported sound format %q", filepath.Ext(path))
}

// nopCloser leaves closing the file to the caller.
type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }
