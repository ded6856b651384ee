package proc

import "github.com/eschaton/MINIXCompat/pkg/minix"

// brkFailed is the guest-side (char *)-1 value reported when brk fails.
const brkFailed minix.Address = 0xffffffff

// Brk emulates the MINIX brk call. There is only one guest process per
// host process and it has the run of the address space up to the
// executable limit, so any request between the executable's initial break
// and that limit is accepted. Returns the guest result code and the
// resulting break address; a failed request leaves the break unchanged and
// reports the no-change sentinel.
func (p *Process) Brk(requested minix.Address) (int16, minix.Address) {
	if p.currentBreak == 0 {
		p.currentBreak = p.initialBreak()
	}

	var result int16
	var resulting minix.Address

	if requested >= p.initialBreak() && requested < minix.ExecutableLimit {
		p.currentBreak = requested
		resulting = requested
	} else {
		result = -int16(minix.ENOMEM)
		resulting = brkFailed
	}

	p.sysLog.Debugf("brk(%#08x) -> %d", requested, result)

	return result, resulting
}

// Break returns the current break address.
func (p *Process) Break() minix.Address {
	if p.currentBreak == 0 {
		p.currentBreak = p.initialBreak()
	}
	return p.currentBreak
}

func (p *Process) initialBreak() minix.Address {
	if p.exe == nil {
		return 0
	}
	return p.exe.InitialBreak
}
