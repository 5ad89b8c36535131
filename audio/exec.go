package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// DefaultPlayers lists external players tried in order, with the arguments
// that go before the file path.
var DefaultPlayers = [][]string{
	{"paplay"},
	{"aplay", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpg123", "-q"},
}

// ExecBackend plays files by running an external player process.
type ExecBackend struct {
	Command string
	Args    []string
}

// FindExecBackend returns a backend for the first player found on PATH.
func FindExecBackend() (*ExecBackend, error) {
	for _, p := range DefaultPlayers {
		if _, err := exec.LookPath(p[0]); err == nil {
			return &ExecBackend{Command: p[0], Args: p[1:]}, nil
		}
	}
	return nil, ErrNoPlayer
}

// Play implements Backend. The process is killed when ctx is cancelled.
func (e *ExecBackend) Play(ctx context.Context, path string) error {
	if e == nil || e.Command == "" {
		return ErrNoPlayer
	}
	bin, err := exec.LookPath(e.Command)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoPlayer, e.Command, err)
	}

	args := append(append([]string{}, e.Args...), path)
	cmd := exec.CommandContext(ctx, bin, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", e.Command, err)
	}
	return nil
}

// Fallback tries each backend in order until one is able to play.
type Fallback []Backend

// Play implements Backend. Only ErrNoPlayer moves on to the next backend.
func (f Fallback) Play(ctx context.Context, path string) error {
	err := ErrNoPlayer
	for _, b := range f {
		if b == nil {
			continue
		}
		err = b.Play(ctx, path)
		if !errors.Is(err, ErrNoPlayer) {
			return err
		}
	}
	return err
}
