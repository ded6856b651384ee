// Package emu provides the 68K machine state that the emulated MINIX
// system calls operate against: registers, the 16MB RAM image, and the
// run-state of the guest. The instruction interpreter itself is pluggable;
// this package only owns the state it manipulates.
package emu

import "github.com/eschaton/MINIXCompat/pkg/minix"

// RunState describes what the guest execution loop should do next.
type RunState int

const (
	// StateNotReady means no executable has been loaded yet.
	StateNotReady RunState = iota
	// StateReady means an executable is loaded and the machine has been
	// reset; the run loop may begin (or resume, after an exec) stepping.
	StateReady
	// StateRunning means the run loop is stepping the interpreter.
	StateRunning
	// StateFinished means the guest called exit and the run loop should
	// stop; the exit status is held by the process session.
	StateFinished
)

func (s RunState) String() string {
	switch s {
	case StateNotReady:
		return "not ready"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// CPU is the narrow interface the process and system-call layers need from
// the machine. It is satisfied by *Machine; tests substitute lighter fakes.
type CPU interface {
	// PC returns the current program counter.
	PC() minix.Address
	// SetPC sets the program counter.
	SetPC(pc minix.Address)
	// SR returns the current status register.
	SR() uint16

	// Push16 pushes a 16-bit word onto the guest stack and returns the
	// address it was pushed to.
	Push16(v uint16) minix.Address
	// Push32 pushes a 32-bit longword onto the guest stack and returns
	// the address it was pushed to.
	Push32(v uint32) minix.Address

	// ClearRAM zeroes the emulated RAM.
	ClearRAM()
	// CopyToRAM copies a host byte block into guest RAM at addr.
	CopyToRAM(addr minix.Address, b []byte)
	// CopyFromRAM copies a byte block out of guest RAM.
	CopyFromRAM(addr minix.Address, n uint32) []byte

	// State returns the current run state.
	State() RunState
	// ChangeState transitions the run state. Entering StateReady resets
	// the machine registers for a fresh run.
	ChangeState(s RunState)
}
