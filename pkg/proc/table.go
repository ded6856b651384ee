package proc

import "github.com/eschaton/MINIXCompat/pkg/minix"

// mapping relates one live guest process to its host process. A zero
// minixPID marks a free slot; guest PID 0 is never allocated.
type mapping struct {
	hostPID  int
	minixPID minix.Pid
}

// minixPidForHost returns the guest PID for the given host PID. Absence is
// a normal outcome, distinct from any valid PID.
func (p *Process) minixPidForHost(hostPID int) (minix.Pid, bool) {
	for i := range p.table {
		if p.table[i].hostPID == hostPID {
			return p.table[i].minixPID, true
		}
	}
	return 0, false
}

// hostPidForMinix returns the host PID for the given guest PID.
func (p *Process) hostPidForMinix(pid minix.Pid) (int, bool) {
	for i := range p.table {
		if p.table[i].minixPID == pid {
			return p.table[i].hostPID, true
		}
	}
	return 0, false
}

// nextFreeTableEntry returns the index of the first free slot at or above
// entry 2; entries 0 and 1 are reserved for self and parent. When the table
// is full it grows by half again its size, zero-filling the new slots, and
// the first new slot is returned.
func (p *Process) nextFreeTableEntry() int {
	for i := 2; i < len(p.table); i++ {
		if p.table[i].hostPID == 0 {
			return i
		}
	}

	oldSize := len(p.table)
	grown := make([]mapping, oldSize+oldSize/2)
	copy(grown, p.table)
	p.table = grown
	return oldSize
}

// removeMinixProcess clears the table entry for the given guest PID. It is
// a no-op if the PID is not in the table.
func (p *Process) removeMinixProcess(pid minix.Pid) {
	if pid <= 0 {
		panic("proc: removing invalid guest PID")
	}
	for i := range p.table {
		if p.table[i].minixPID == pid {
			p.table[i] = mapping{}
			break
		}
	}
}
