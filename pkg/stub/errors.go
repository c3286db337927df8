package stub

import (
	"errors"
	"fmt"

	"github.com/gdbstub-go/gdbstub/pkg/common"
)

// DisconnectKind says why a session ended.
type DisconnectKind int

const (
	// DisconnectNone: the session is still live.
	DisconnectNone DisconnectKind = iota
	// DisconnectClient: the client sent a detach ('D') packet.
	DisconnectClient
	// DisconnectKill: the client sent a kill ('k'/'vKill') packet.
	DisconnectKill
	// DisconnectTargetExited: the target process exited.
	DisconnectTargetExited
	// DisconnectTargetTerminated: the target died from a signal.
	DisconnectTargetTerminated
	// DisconnectError: a transport failure, protocol violation, or fatal
	// target error tore the session down; Err carries the cause.
	DisconnectError
)

// DisconnectReason is handed to the caller when a session ends.
type DisconnectReason struct {
	Kind       DisconnectKind
	ExitStatus uint8         // DisconnectTargetExited
	Sig        common.Signal // DisconnectTargetTerminated
	Err        error         // DisconnectError
}

func (r DisconnectReason) String() string {
	switch r.Kind {
	case DisconnectClient:
		return "client detached"
	case DisconnectKill:
		return "killed by client"
	case DisconnectTargetExited:
		return fmt.Sprintf("target exited with status %d", r.ExitStatus)
	case DisconnectTargetTerminated:
		return fmt.Sprintf("target terminated by signal %d", r.Sig)
	case DisconnectError:
		return fmt.Sprintf("session error: %v", r.Err)
	}
	return "still connected"
}

// ErrClientNack is the session error raised when the client rejects a
// response; the stub does not buffer responses for retransmission.
var ErrClientNack = errors.New("client rejected response checksum")

// ErrUnsupportedStopReason is raised when a target reports a stop reason
// belonging to a capability it never declared.
var ErrUnsupportedStopReason = errors.New("stop reason requires an undeclared capability")

// TargetError wraps an opaque fatal error returned by the debug target.
type TargetError struct {
	Err error
}

func (e *TargetError) Error() string { return fmt.Sprintf("target error: %v", e.Err) }

func (e *TargetError) Unwrap() error { return e.Err }
