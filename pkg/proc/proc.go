// Package proc emulates the MINIX process model on top of host processes:
// PID mapping, fork, wait-status translation, signal registration and
// deferred delivery, exec argument marshalling, and break management.
//
// All guest-visible operations return guest-ABI integers where a negative
// value is a negated MINIX errno. A Process is the session state for one
// host process; after a fork, parent and child each continue with their own
// independently repaired copy.
package proc

import (
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/eschaton/MINIXCompat/pkg/emu"
	"github.com/eschaton/MINIXCompat/pkg/fs"
	"github.com/eschaton/MINIXCompat/pkg/logflags"
	"github.com/eschaton/MINIXCompat/pkg/minix"
	"github.com/eschaton/MINIXCompat/pkg/minix/aout"
)

// MINIX PIDs 0..2 belong to MM, FS and init. Pretending the guest program
// was launched in a terminal session, PIDs 3..6 are the boot-time shell,
// getty, login and user shell, which makes the guest itself 7 with 6 as
// its parent.
const (
	bootstrapParentPID minix.Pid = 6
	bootstrapSelfPID   minix.Pid = 7
	firstAllocatedPID  minix.Pid = 8
)

// initialTableSize matches the MINIX NR_PROCS limit; the table grows past
// it if a guest manages to fork that much.
const initialTableSize = 32

// Process is the per-host-process emulation session. Exactly one Process
// exists per host process; fork produces a second host process whose
// Process is a repaired copy of the parent's (see Fork).
type Process struct {
	cpu emu.CPU
	fs  *fs.Translator

	table    []mapping
	selfPID  minix.Pid
	selfPPID minix.Pid
	nextPID  minix.Pid

	handlers [minix.NSig + 1]SignalAction

	// Pending signal state, written from the asynchronous host signal
	// path and drained at the run loop's poll point. The async path only
	// ever sets these flags; everything else happens at the poll point.
	hasPending atomic.Bool
	pending    [minix.NSig + 1]atomic.Bool
	sigCh      chan os.Signal

	exe          *aout.Executable
	currentBreak minix.Address

	exitStatus int16

	// Per-component loggers, so a single subsystem can be traced from
	// --log-output without enabling the others.
	log     *logrus.Entry
	sysLog  *logrus.Entry
	sigLog  *logrus.Entry
	execLog *logrus.Entry
}

// New creates the emulation session for this host process, with bootstrap
// identity entries for the guest itself and its pretend parent shell.
func New(cpu emu.CPU, t *fs.Translator) *Process {
	p := &Process{
		cpu:     cpu,
		fs:      t,
		table:   make([]mapping, initialTableSize),
		nextPID: firstAllocatedPID,
		log:     logflags.ProcessLogger(),
		sysLog:  logflags.SysCallLogger(),
		sigLog:  logflags.SignalLogger(),
		execLog: logflags.ExecLogger(),
	}

	// Entry 0 is always ourselves, first for fastest access by linear
	// search; entry 1 is always our parent.
	p.table[0] = mapping{hostPID: os.Getpid(), minixPID: bootstrapSelfPID}
	p.table[1] = mapping{hostPID: os.Getppid(), minixPID: bootstrapParentPID}

	p.startSignalPump()

	return p
}

// ensureIdentity lazily derives the cached self/parent PIDs from the
// identity table.
func (p *Process) ensureIdentity() {
	if p.selfPID == 0 && p.selfPPID == 0 {
		p.selfPID = p.table[0].minixPID
		p.selfPPID = p.table[1].minixPID
	}
}

// GetProcessIDs returns the guest's own PID and parent PID.
func (p *Process) GetProcessIDs() (pid, ppid minix.Pid) {
	p.ensureIdentity()

	p.log.Debugf("getpid() -> %d", p.selfPID)
	p.log.Debugf("getppid() -> %d", p.selfPPID)

	return p.selfPID, p.selfPPID
}

// Exit records the guest's exit status and stops the run loop. The host
// process exits with this status once the run loop observes the state
// change.
func (p *Process) Exit(status int16) {
	p.exitStatus = status
	p.cpu.ChangeState(emu.StateFinished)

	p.log.Debugf("exit(%d)", status)
}

// ExitStatus returns the status the guest passed to exit.
func (p *Process) ExitStatus() int16 {
	return p.exitStatus
}
