package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records plays and optionally blocks until cancelled.
type countingBackend struct {
	plays atomic.Int32
	block bool
	err   error

	mu    sync.Mutex
	paths []string
}

func (b *countingBackend) Play(ctx context.Context, path string) error {
	b.plays.Add(1)
	b.mu.Lock()
	b.paths = append(b.paths, path)
	b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if b.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (b *countingBackend) lastPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.paths) == 0 {
		return ""
	}
	return b.paths[len(b.paths)-1]
}

func init() {
	loopGap = time.Millisecond
}

func TestPlayer_LoopsUntilStopped(t *testing.T) {
	b := &countingBackend{}
	p := NewPlayer(b)

	p.Start("/sounds/a.wav", true)
	require.Eventually(t, func() bool { return b.plays.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, p.Playing())

	p.Stop()
	assert.False(t, p.Playing())
	n := b.plays.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, b.plays.Load(), "no plays after Stop returns")
}

func TestPlayer_NoLoopPlaysOnce(t *testing.T) {
	b := &countingBackend{}
	p := NewPlayer(b)

	p.Start("/sounds/a.wav", false)
	require.Eventually(t, func() bool { return !p.Playing() }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, b.plays.Load())
}

func TestPlayer_StartReplacesSession(t *testing.T) {
	b := &countingBackend{block: true}
	p := NewPlayer(b)

	p.Start("/sounds/a.wav", true)
	require.Eventually(t, func() bool { return b.plays.Load() == 1 }, time.Second, time.Millisecond)

	p.Start("/sounds/b.wav", true)
	require.Eventually(t, func() bool { return b.lastPath() == "/sounds/b.wav" }, time.Second, time.Millisecond)
	assert.True(t, p.Playing())

	p.Stop()
	p.Stop()
	assert.False(t, p.Playing())
}

func TestPlayer_BackendErrorEndsSession(t *testing.T) {
	b := &countingBackend{err: ErrNoPlayer}
	p := NewPlayer(b)

	p.Start("/sounds/a.wav", true)
	require.Eventually(t, func() bool { return !p.Playing() }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, b.plays.Load())
}

func TestExecBackend(t *testing.T) {
	ctx := context.Background()

	err := (&ExecBackend{Command: "timering-no-such-player"}).Play(ctx, "/x.wav")
	assert.True(t, errors.Is(err, ErrNoPlayer))

	var nilBackend *ExecBackend
	assert.True(t, errors.Is(nilBackend.Play(ctx, "/x.wav"), ErrNoPlayer))

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	require.NoError(t, (&ExecBackend{Command: "sh", Args: []string{"-c", "exit 0", "--"}}).Play(ctx, "/x.wav"))
	assert.Error(t, (&ExecBackend{Command: "sh", Args: []string{"-c", "exit 3", "--"}}).Play(ctx, "/x.wav"))

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err = (&ExecBackend{Command: "sh", Args: []string{"-c", "sleep 5", "--"}}).Play(cctx, "/x.wav")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestFallback(t *testing.T) {
	missing := &countingBackend{err: ErrNoPlayer}
	working := &countingBackend{}
	broken := &countingBackend{err: errors.New("decode failed")}

	require.NoError(t, Fallback{missing, working}.Play(context.Background(), "/a.wav"))
	assert.EqualValues(t, 1, missing.plays.Load())
	assert.EqualValues(t, 1, working.plays.Load())

	err := Fallback{broken, working}.Play(context.Background(), "/a.wav")
	assert.EqualError(t, err, "decode failed")

	assert.ErrorIs(t, Fallback{}.Play(context.Background(), "/a.wav"), ErrNoPlayer)
}

func TestWriteBuiltinTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sounds", "timesup.wav")
	require.NoError(t, WriteBuiltinTone(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	s, format, err := wav.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, format.SampleRate)
	assert.Equal(t, 2, format.NumChannels)
	assert.InDelta(t, DefaultSampleRate.N(toneLength), s.Len(), 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, WriteBuiltinTone(path), "existing file is kept")
	again, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestResolveSound(t *testing.T) {
	present := map[string]bool{"/mine.mp3": true, "/default.wav": true}
	exists := func(p string) bool { return present[p] }

	assert.Equal(t, "/mine.mp3", ResolveSound("/mine.mp3", "/default.wav", "/builtin.wav", exists))
	assert.Equal(t, "/default.wav", ResolveSound("/gone.mp3", "/default.wav", "/builtin.wav", exists))
	assert.Equal(t, "/default.wav", ResolveSound("", "/default.wav", "/builtin.wav", exists))
	assert.Equal(t, "/builtin.wav", ResolveSound("/gone.mp3", "/also-gone.wav", "/builtin.wav", exists))
	assert.Equal(t, "/builtin.wav", ResolveSound("", "", "/builtin.wav", exists))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(""))
	assert.False(t, FileExists(filepath.Join(dir, "missing.wav")))
}
