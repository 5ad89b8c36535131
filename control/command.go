// Package control defines lightweight command messages used by the UI to
// request actions from the engine command loop. The command loop
// centralizes user-initiated state changes on one goroutine.
package control

import "TimeRing/timer"

// CommandType enumerates supported command operations.
type CommandType int

const (
	CmdCreate CommandType = iota
	CmdPauseResume
	CmdStop
	CmdRerun
	CmdDelete
	CmdEditDescription
	CmdEditSound
)

func (c CommandType) String() string {
	switch c {
	case CmdCreate:
		return "create"
	case CmdPauseResume:
		return "pause-resume"
	case CmdStop:
		return "stop"
	case CmdRerun:
		return "rerun"
	case CmdDelete:
		return "delete"
	case CmdEditDescription:
		return "edit-description"
	case CmdEditSound:
		return "edit-sound"
	}
	return "unknown"
}

// Command is the message sent from the UI to the engine command loop. The
// optional Reply channel receives the result of the command (nil on
// success); it should be buffered so the loop never blocks on it.
type Command struct {
	Type    CommandType
	TimerID string

	Config      timer.TimerConfig // CmdCreate
	Name        string            // CmdEditDescription
	Description string            // CmdEditDescription
	SoundPath   string            // CmdEditSound

	Reply chan error
}
