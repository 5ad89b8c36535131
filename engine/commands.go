package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"TimeRing/control"
)

// EnqueueTimeout bounds how long Enqueue blocks on a full command queue.
const EnqueueTimeout = 150 * time.Millisecond

// Enqueue posts a command to the command loop without blocking the caller
// indefinitely. A command that cannot be queued in time is dropped and its
// Reply, if any, receives an error.
func (e *Engine) Enqueue(cmd control.Command) {
	select {
	case e.cmdCh <- cmd:
	case <-time.After(EnqueueTimeout):
		log.Printf("Enqueue timeout: dropping %s command", cmd.Type)
		reply(cmd, fmt.Errorf("command queue full: %s dropped", cmd.Type))
	}
}

// Run executes queued commands until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmdCh:
			err := e.execute(cmd)
			if err != nil {
				log.Printf("Command %s on %q failed: %v", cmd.Type, cmd.TimerID, err)
			}
			reply(cmd, err)
		}
	}
}

func (e *Engine) execute(cmd control.Command) error {
	switch cmd.Type {
	case control.CmdCreate:
		_, err := e.Create(cmd.Config)
		return err
	case control.CmdPauseResume:
		return e.PauseResume(cmd.TimerID)
	case control.CmdStop:
		return e.Stop(cmd.TimerID)
	case control.CmdRerun:
		return e.Rerun(cmd.TimerID)
	case control.CmdDelete:
		return e.Delete(cmd.TimerID)
	case control.CmdEditDescription:
		return e.EditDescription(cmd.TimerID, cmd.Name, cmd.Description)
	case control.CmdEditSound:
		return e.EditSound(cmd.TimerID, cmd.SoundPath)
	}
	return fmt.Errorf("unknown command %d", cmd.Type)
}

func reply(cmd control.Command, err error) {
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- err:
	default:
	}
}
