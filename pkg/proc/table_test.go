package proc

import (
	"os"
	"testing"

	"github.com/eschaton/MINIXCompat/pkg/emu"
	"github.com/eschaton/MINIXCompat/pkg/fs"
	"github.com/eschaton/MINIXCompat/pkg/minix"
)

func newTestProcess(t *testing.T) *Process {
	t.Helper()
	return New(emu.NewMachine(), fs.NewTranslator(t.TempDir()))
}

func TestBootstrapTable(t *testing.T) {
	p := newTestProcess(t)

	pid, ok := p.minixPidForHost(os.Getpid())
	if !ok || pid != 7 {
		t.Fatalf("expected self mapping to 7; got %d (found %v)", pid, ok)
	}
	host, ok := p.hostPidForMinix(6)
	if !ok || host != os.Getppid() {
		t.Fatalf("expected parent mapping to %d; got %d (found %v)", os.Getppid(), host, ok)
	}
}

func TestLookupAbsent(t *testing.T) {
	p := newTestProcess(t)

	if _, ok := p.minixPidForHost(999999); ok {
		t.Fatal("expected no mapping for unknown host pid")
	}
	if _, ok := p.hostPidForMinix(42); ok {
		t.Fatal("expected no mapping for unknown guest pid")
	}
}

func TestNextFreeTableEntrySkipsReserved(t *testing.T) {
	p := newTestProcess(t)

	if slot := p.nextFreeTableEntry(); slot != 2 {
		t.Fatalf("expected first free slot to be 2; got %d", slot)
	}
}

func TestTableGrowthKeepsMappings(t *testing.T) {
	p := newTestProcess(t)

	// Fill well past the initial table size.
	n := initialTableSize * 2
	for i := 0; i < n; i++ {
		slot := p.nextFreeTableEntry()
		pid := p.nextPID
		p.nextPID++
		p.table[slot] = mapping{hostPID: 10000 + i, minixPID: pid}
	}

	for i := 0; i < n; i++ {
		want := minix.Pid(int(firstAllocatedPID) + i)
		host, ok := p.hostPidForMinix(want)
		if !ok || host != 10000+i {
			t.Fatalf("mapping for guest pid %d lost after growth: got %d (found %v)", want, host, ok)
		}
	}
}

func TestRemoveMinixProcess(t *testing.T) {
	p := newTestProcess(t)

	slot := p.nextFreeTableEntry()
	p.table[slot] = mapping{hostPID: 12345, minixPID: 8}

	p.removeMinixProcess(8)
	if _, ok := p.hostPidForMinix(8); ok {
		t.Fatal("expected mapping to be removed")
	}
	if p.table[slot].hostPID != 0 || p.table[slot].minixPID != 0 {
		t.Fatalf("expected slot to be zeroed; got %+v", p.table[slot])
	}

	// Removing an absent PID is a no-op.
	p.removeMinixProcess(8)
}
