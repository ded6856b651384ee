package emu

import (
	"testing"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

func TestBigEndianAccess(t *testing.T) {
	m := NewMachine()

	m.Write32(0x1000, 0x01020304)
	if got := m.Read8(0x1000); got != 0x01 {
		t.Fatalf("expected the high byte first; got %#02x", got)
	}
	if got := m.Read16(0x1000); got != 0x0102 {
		t.Fatalf("expected 0x0102; got %#04x", got)
	}
	if got := m.Read16(0x1002); got != 0x0304 {
		t.Fatalf("expected 0x0304; got %#04x", got)
	}
	if got := m.Read32(0x1000); got != 0x01020304 {
		t.Fatalf("expected 0x01020304; got %#08x", got)
	}
}

func TestAddressWrap(t *testing.T) {
	m := NewMachine()
	m.Write8(minix.RAMSize+0x10, 0xaa)
	if got := m.Read8(0x10); got != 0xaa {
		t.Fatalf("expected addresses to wrap at RAM size; got %#02x", got)
	}
}

func TestAddressWrapAtTop(t *testing.T) {
	m := NewMachine()

	// A longword straddling the top of the address space wraps around to
	// address 0, byte by byte.
	m.Write32(minix.RAMSize-2, 0x01020304)
	if got := m.Read8(minix.RAMSize - 2); got != 0x01 {
		t.Fatalf("expected 0x01 below the top; got %#02x", got)
	}
	if got := m.Read8(0); got != 0x03 {
		t.Fatalf("expected 0x03 wrapped to address 0; got %#02x", got)
	}
	if got := m.Read8(1); got != 0x04 {
		t.Fatalf("expected 0x04 wrapped to address 1; got %#02x", got)
	}
	if got := m.Read32(minix.RAMSize - 2); got != 0x01020304 {
		t.Fatalf("expected the straddling longword to read back; got %#08x", got)
	}
	if got := m.Read16(minix.RAMSize - 1); got != 0x0203 {
		t.Fatalf("expected 0x0203 across the top; got %#04x", got)
	}
}

func TestPush(t *testing.T) {
	m := NewMachine()
	m.SetSP(minix.StackBase)

	a32 := m.Push32(0xdeadbeef)
	if a32 != minix.StackBase-4 || m.SP() != a32 {
		t.Fatalf("expected longword push to land at %#x; got %#x", minix.StackBase-4, a32)
	}
	a16 := m.Push16(0x1234)
	if a16 != minix.StackBase-6 || m.SP() != a16 {
		t.Fatalf("expected word push to land at %#x; got %#x", minix.StackBase-6, a16)
	}
	if got := m.Read32(a32); got != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef on the stack; got %#08x", got)
	}
	if got := m.Read16(a16); got != 0x1234 {
		t.Fatalf("expected 0x1234 on the stack; got %#04x", got)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	m := NewMachine()
	b := []byte{1, 2, 3, 4, 5}
	m.CopyToRAM(0x2000, b)
	got := m.CopyFromRAM(0x2000, 5)
	for i := range b {
		if got[i] != b[i] {
			t.Fatalf("byte %d: expected %d, got %d", i, b[i], got[i])
		}
	}
}

func TestClearRAM(t *testing.T) {
	m := NewMachine()
	m.Write32(0x3000, 0xffffffff)
	m.ClearRAM()
	if got := m.Read32(0x3000); got != 0 {
		t.Fatalf("expected cleared RAM; got %#08x", got)
	}
}

func TestReadyResetsRegisters(t *testing.T) {
	m := NewMachine()
	m.SetPC(0x4242)
	m.SetSP(0x1000)
	m.SetSR(0x2700)

	m.ChangeState(StateReady)
	if m.State() != StateReady {
		t.Fatalf("unexpected state %v", m.State())
	}
	if m.PC() != minix.ExecutableBase || m.SP() != minix.StackBase || m.SR() != 0 {
		t.Fatalf("registers not reset: pc=%#x sp=%#x sr=%#x", m.PC(), m.SP(), m.SR())
	}
}

type countingInterpreter struct {
	calls  int
	cycles int
}

func (ci *countingInterpreter) Run(m *Machine, cycles int) (int, error) {
	ci.calls++
	ci.cycles = cycles
	return cycles, nil
}

func TestRunDispatchesToInterpreter(t *testing.T) {
	m := NewMachine()
	ci := &countingInterpreter{}
	m.SetInterpreter(ci)

	n, err := m.Run(1000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1000 || ci.calls != 1 || ci.cycles != 1000 {
		t.Fatalf("interpreter not driven as expected: n=%d calls=%d cycles=%d", n, ci.calls, ci.cycles)
	}
}

func TestRunWithoutInterpreter(t *testing.T) {
	m := NewMachine()
	if _, err := m.Run(100); err == nil {
		t.Fatal("expected an error without an interpreter")
	}
}

func TestRunStateStrings(t *testing.T) {
	for s, want := range map[RunState]string{
		StateNotReady: "not ready",
		StateReady:    "ready",
		StateRunning:  "running",
		StateFinished: "finished",
	} {
		if got := s.String(); got != want {
			t.Fatalf("state %d: expected %q, got %q", s, want, got)
		}
	}
}
