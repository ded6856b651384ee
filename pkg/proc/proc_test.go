package proc

import (
	"os"
	"testing"

	"github.com/eschaton/MINIXCompat/pkg/emu"
	"github.com/eschaton/MINIXCompat/pkg/fs"
)

func TestGetProcessIDsBootstrap(t *testing.T) {
	p := newTestProcess(t)

	pid, ppid := p.GetProcessIDs()
	if pid != 7 || ppid != 6 {
		t.Fatalf("expected bootstrap identity (7, 6); got (%d, %d)", pid, ppid)
	}
}

func TestForkChildTableRepair(t *testing.T) {
	p := newTestProcess(t)

	oldSelf := p.table[0]
	oldParent := p.table[1]

	slot := p.nextFreeTableEntry()
	newPID := p.nextPID
	p.nextPID++

	p.forkChild(slot, newPID)

	// The child's own identity lands in entry 0 with its real host PID.
	if p.table[0].hostPID != os.Getpid() || p.table[0].minixPID != newPID {
		t.Fatalf("expected entry 0 to be {%d, %d}; got %+v", os.Getpid(), newPID, p.table[0])
	}
	// The old self is the child's actual parent.
	if p.table[1] != oldSelf {
		t.Fatalf("expected entry 1 to be the old self %+v; got %+v", oldSelf, p.table[1])
	}
	// The old parent stays addressable in the reserved slot.
	if p.table[slot] != oldParent {
		t.Fatalf("expected slot %d to hold the old parent %+v; got %+v", slot, oldParent, p.table[slot])
	}

	pid, ppid := p.GetProcessIDs()
	if pid != newPID || ppid != oldSelf.minixPID {
		t.Fatalf("expected identity (%d, %d); got (%d, %d)", newPID, oldSelf.minixPID, pid, ppid)
	}
}

func TestExitFinishesMachine(t *testing.T) {
	machine := emu.NewMachine()
	p := New(machine, fs.NewTranslator(t.TempDir()))

	p.Exit(3)
	if machine.State() != emu.StateFinished {
		t.Fatalf("expected machine finished; got %v", machine.State())
	}
	if p.ExitStatus() != 3 {
		t.Fatalf("expected exit status 3; got %d", p.ExitStatus())
	}
}
