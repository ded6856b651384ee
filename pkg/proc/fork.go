package proc

import (
	"os"

	"github.com/eschaton/MINIXCompat/pkg/logflags"
	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// Fork emulates a MINIX fork by duplicating the host process. In the
// parent it returns the child's new guest PID; in the child it returns 0;
// on failure it returns the negated MINIX errno.
//
// The table slot and the new guest PID are both reserved before the host
// fork so that parent and child agree on them; afterwards each process
// repairs its own copy of the table independently. The parent just records
// the child. The child shuffles entries so that the hard invariant — entry
// 0 is myself, entry 1 is my parent — holds in its diverged copy too: the
// old parent moves into the reserved slot so it stays addressable by its
// guest PID, the old self becomes the new parent, and the child's own
// identity lands in entry 0.
func (p *Process) Fork() minix.Pid {
	var result minix.Pid

	slot := p.nextFreeTableEntry()

	newPID := p.nextPID
	p.nextPID++

	childHostPID, errno := sysFork()

	switch {
	case errno != 0:
		// No child was created; give the PID back.
		p.nextPID--
		result = -minix.Pid(minix.ErrnoForHost(errno))

	case childHostPID != 0:
		// Parent. Fill in the reserved entry; from here the two tables
		// diverge.
		p.table[slot] = mapping{hostPID: childHostPID, minixPID: newPID}
		result = newPID

	default:
		// Child. Reopen the logs first so nothing below interleaves
		// with the parent's file.
		logflags.Reinitialize()
		p.log = logflags.ProcessLogger()
		p.sysLog = logflags.SysCallLogger()
		p.sigLog = logflags.SignalLogger()
		p.execLog = logflags.ExecLogger()

		// The fork only kept the calling thread; host signal delivery
		// has to be rewired in the child.
		p.restartSignalPump()

		p.forkChild(slot, newPID)

		// The child can query its own PID whenever it wants one, so
		// fork itself returns 0.
		result = 0
	}

	p.log.Debugf("fork() -> %d", result)

	return result
}

// forkChild repairs the child's copy of the identity table after a fork.
func (p *Process) forkChild(slot int, newPID minix.Pid) {
	p.ensureIdentity()

	// Keep the old parent reachable under its guest PID.
	p.table[slot] = p.table[1]

	p.selfPPID = p.selfPID
	p.selfPID = newPID

	// The old self is this child's actual parent.
	p.table[1] = p.table[0]
	p.table[0] = mapping{hostPID: os.Getpid(), minixPID: newPID}
}
