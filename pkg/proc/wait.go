package proc

import (
	sys "golang.org/x/sys/unix"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// Wait blocks until a host child changes state and returns the child's
// guest PID together with the packed guest wait status. A negative PID is a
// negated MINIX errno. Children that exited or were terminated by a signal
// are removed from the identity table.
//
// The host wait is retried on EINTR; most MINIX code does not expect wait
// to fail that way, so the interruption is never surfaced to the guest.
func (p *Process) Wait() (minix.Pid, WaitStatus) {
	var hostStat sys.WaitStatus

	var hostPID int
	var err error
	for {
		hostPID, err = sys.Wait4(-1, &hostStat, 0, nil)
		if err != sys.EINTR {
			break
		}
	}
	if err != nil {
		return -minix.Pid(minix.ErrnoForHost(err)), 0
	}

	stat := statusForHost(hostStat)

	pid, ok := p.minixPidForHost(hostPID)
	if !ok {
		// A child we never knew about; there is no guest process to
		// report it as.
		p.log.Debugf("wait() -> unknown host pid %d", hostPID)
		return -minix.Pid(minix.ESRCH), stat
	}

	if stat.Exited() || stat.Signaled() {
		p.removeMinixProcess(pid)
	}

	p.log.Debugf("wait(%s) -> %d", stat, pid)

	return pid, stat
}
