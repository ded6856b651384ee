package emu

import (
	"fmt"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// Interpreter executes guest instructions against a Machine. The actual
// 68000 core is supplied by the embedding program; the Machine only holds
// the state an interpreter and the system-call layer share.
type Interpreter interface {
	// Run executes up to cycles cycles and returns the number consumed.
	Run(m *Machine, cycles int) (int, error)
}

// Machine is the emulated 68K machine state: RAM, the registers the
// system-call layer touches, and the run state.
//
// All multi-byte RAM accesses are big-endian, as on a real 68000.
type Machine struct {
	ram [minix.RAMSize]byte

	pc minix.Address
	sr uint16
	sp minix.Address

	state  RunState
	interp Interpreter
}

// NewMachine returns a Machine with cleared RAM in StateNotReady.
func NewMachine() *Machine {
	return &Machine{}
}

// SetInterpreter attaches the instruction interpreter used by Run.
func (m *Machine) SetInterpreter(interp Interpreter) {
	m.interp = interp
}

// Run steps the attached interpreter for up to the given number of cycles.
func (m *Machine) Run(cycles int) (int, error) {
	if m.interp == nil {
		return 0, fmt.Errorf("no instruction interpreter attached")
	}
	return m.interp.Run(m, cycles)
}

// PC returns the current program counter.
func (m *Machine) PC() minix.Address { return m.pc }

// SetPC sets the program counter.
func (m *Machine) SetPC(pc minix.Address) { m.pc = pc }

// SR returns the status register.
func (m *Machine) SR() uint16 { return m.sr }

// SetSR sets the status register.
func (m *Machine) SetSR(sr uint16) { m.sr = sr }

// SP returns the stack pointer.
func (m *Machine) SP() minix.Address { return m.sp }

// SetSP sets the stack pointer.
func (m *Machine) SetSP(sp minix.Address) { m.sp = sp }

// Push16 pushes a 16-bit word and returns the address it was pushed to.
func (m *Machine) Push16(v uint16) minix.Address {
	m.sp -= 2
	m.Write16(m.sp, v)
	return m.sp
}

// Push32 pushes a 32-bit longword and returns the address it was pushed to.
func (m *Machine) Push32(v uint32) minix.Address {
	m.sp -= 4
	m.Write32(m.sp, v)
	return m.sp
}

// Read8 reads the byte at addr.
func (m *Machine) Read8(addr minix.Address) uint8 {
	return m.ram[addr&(minix.RAMSize-1)]
}

// Read16 reads the big-endian 16-bit word at addr. Accesses straddling the
// top of the address space wrap around, as the masked 24-bit bus does.
func (m *Machine) Read16(addr minix.Address) uint16 {
	return uint16(m.Read8(addr))<<8 | uint16(m.Read8(addr+1))
}

// Read32 reads the big-endian 32-bit longword at addr.
func (m *Machine) Read32(addr minix.Address) uint32 {
	return uint32(m.Read16(addr))<<16 | uint32(m.Read16(addr+2))
}

// Write8 writes the byte at addr.
func (m *Machine) Write8(addr minix.Address, v uint8) {
	m.ram[addr&(minix.RAMSize-1)] = v
}

// Write16 writes a big-endian 16-bit word at addr, wrapping at the top of
// the address space.
func (m *Machine) Write16(addr minix.Address, v uint16) {
	m.Write8(addr, uint8(v>>8))
	m.Write8(addr+1, uint8(v))
}

// Write32 writes a big-endian 32-bit longword at addr.
func (m *Machine) Write32(addr minix.Address, v uint32) {
	m.Write16(addr, uint16(v>>16))
	m.Write16(addr+2, uint16(v))
}

// ClearRAM zeroes all of guest RAM.
func (m *Machine) ClearRAM() {
	for i := range m.ram {
		m.ram[i] = 0
	}
}

// CopyToRAM copies a host byte block into guest RAM at addr. The block must
// not extend past the end of the address space.
func (m *Machine) CopyToRAM(addr minix.Address, b []byte) {
	copy(m.ram[addr:], b)
}

// CopyFromRAM returns a copy of n bytes of guest RAM starting at addr.
func (m *Machine) CopyFromRAM(addr minix.Address, n uint32) []byte {
	b := make([]byte, n)
	copy(b, m.ram[addr:])
	return b
}

// State returns the current run state.
func (m *Machine) State() RunState { return m.state }

// ChangeState transitions the run state. Entering StateReady resets the
// registers for a fresh run: execution starts at the executable base with
// the stack pointer at the stack base, where exec placed the argument block.
func (m *Machine) ChangeState(s RunState) {
	m.state = s
	if s == StateReady {
		m.pc = minix.ExecutableBase
		m.sp = minix.StackBase
		m.sr = 0
	}
}
