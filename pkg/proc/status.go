package proc

import (
	"fmt"

	sys "golang.org/x/sys/unix"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// WaitStatus is the packed 16-bit wait status a MINIX wait call returns,
// already in guest bit order: guest binaries inspect it directly, so the
// layout is a wire contract.
//
// The status has three separate styles:
//
//	low byte == 0 (exit):         high byte is exit status
//	low byte == 0177 (job control): high byte is signal number
//	high byte == 0 (signal):      low byte is signal
type WaitStatus uint16

// stoppedSentinel marks a job-control stop in the low byte.
const stoppedSentinel = 0o177

func packWaitStatus(high, low uint8) WaitStatus {
	return WaitStatus(uint16(high)<<8 | uint16(low))
}

func (ws WaitStatus) high() uint8 { return uint8(ws >> 8) }
func (ws WaitStatus) low() uint8  { return uint8(ws) }

// Exited reports whether the status describes a normal exit.
func (ws WaitStatus) Exited() bool {
	return ws.low() == 0
}

// Signaled reports whether the status describes termination by signal.
func (ws WaitStatus) Signaled() bool {
	return ws.high() == 0
}

// ExitStatus returns the exit code for an exited status.
func (ws WaitStatus) ExitStatus() int16 {
	return int16(ws.high())
}

// TermSignal returns the terminating signal for a signaled status.
func (ws WaitStatus) TermSignal() minix.Signal {
	return minix.Signal(ws.low())
}

func (ws WaitStatus) String() string {
	switch {
	case ws.Exited():
		return fmt.Sprintf("exited(%d)", ws.ExitStatus())
	case ws.Signaled():
		return fmt.Sprintf("signaled(%d)", ws.TermSignal())
	default:
		return fmt.Sprintf("other(%#04x)", uint16(ws))
	}
}

// statusForHost translates a host wait status into the guest encoding.
// Host statuses that have no MINIX counterpart are treated as termination
// by SIGKILL rather than failing; that keeps wait itself infallible once a
// child has been reaped.
func statusForHost(host sys.WaitStatus) WaitStatus {
	switch {
	case host.Exited():
		return packWaitStatus(uint8(host.ExitStatus()), 0)
	case host.Stopped():
		if sig := SignalForHostSignal(host.StopSignal()); sig != 0 {
			return packWaitStatus(uint8(sig), stoppedSentinel)
		}
		return packWaitStatus(0, uint8(minix.SIGKILL))
	case host.Signaled():
		if sig := SignalForHostSignal(host.Signal()); sig != 0 {
			return packWaitStatus(0, uint8(sig))
		}
		return packWaitStatus(0, uint8(minix.SIGKILL))
	default:
		return packWaitStatus(0, uint8(minix.SIGKILL))
	}
}
