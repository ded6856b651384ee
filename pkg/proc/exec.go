package proc

import (
	"encoding/binary"
	"errors"
	"os"
	"strings"

	"github.com/eschaton/MINIXCompat/pkg/emu"
	"github.com/eschaton/MINIXCompat/pkg/minix"
	"github.com/eschaton/MINIXCompat/pkg/minix/aout"
)

// roundUp4 rounds a size up to the next multiple of 4; exact multiples
// still gain a full word of padding, matching the layout MINIX binaries
// were linked against.
func roundUp4(n uint32) uint32 {
	return n + (4 - n%4)
}

// loadTool resolves, loads and relocates the executable at the given guest
// path into guest memory, returning 0 or a negated MINIX errno.
func (p *Process) loadTool(path string) int16 {
	hostPath := p.fs.HostPath(path)

	if _, err := os.Stat(hostPath); err != nil {
		return -int16(minix.ErrnoForHost(err))
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return -int16(minix.EIO)
	}
	defer f.Close()

	exe, err := aout.Load(f)
	if err != nil {
		if errors.Is(err, aout.ErrBadExecutable) {
			return -int16(minix.ENOEXEC)
		}
		return -int16(minix.ErrnoForHost(err))
	}

	p.cpu.CopyToRAM(minix.ExecutableBase, exe.Image)

	p.exe = exe
	// The new image declares a new initial break; forget the old one so
	// Brk re-derives it lazily.
	p.currentBreak = 0

	p.execLog.Debugf("loaded %s: %d byte image, break %#08x", path, len(exe.Image), exe.InitialBreak)

	return 0
}

// initializeArguments assembles the argc/argv/envp block for the guest.
//
// The region at and above the stack pointer is laid out as
//
//	argc
//	argv[0] .. argv[argc-1]
//	NULL
//	envp[0] .. envp[envc-1]
//	NULL
//
// followed by the packed NUL-terminated string contents, each entry padded
// to a 4-byte boundary. Pointers are guest addresses relative to the stack
// base, written big-endian. Only host environment entries carrying the
// MINIX_ prefix are passed through, with the prefix stripped; everything
// else in the host environment stays invisible to the guest.
func (p *Process) initializeArguments(argv []string, envp []string) {
	var guestEnv []string
	for _, e := range envp {
		if strings.HasPrefix(e, minix.EnvPrefix) {
			guestEnv = append(guestEnv, strings.TrimPrefix(e, minix.EnvPrefix))
		}
	}

	vecCount := 1 + (len(argv) + 1) + (len(guestEnv) + 1)
	vecSize := uint32(vecCount) * 4
	vec := make([]byte, vecSize)
	var content []byte

	idx := 0
	put := func(v uint32) {
		binary.BigEndian.PutUint32(vec[idx*4:], v)
		idx++
	}
	appendString := func(s string) uint32 {
		addr := uint32(minix.StackBase) + vecSize + uint32(len(content))
		padded := roundUp4(uint32(len(s)) + 1)
		b := make([]byte, padded)
		copy(b, s)
		content = append(content, b...)
		return addr
	}

	put(uint32(len(argv)))
	for _, a := range argv {
		put(appendString(a))
	}
	put(0)
	for _, e := range guestEnv {
		put(appendString(e))
	}
	put(0)

	p.cpu.CopyToRAM(minix.StackBase, vec)
	p.cpu.CopyToRAM(minix.StackBase+minix.Address(vecSize), content)
}

// ExecuteWithHostParams emulates exec with arguments still in host form:
// argv[0] is the host tool name and is dropped, the rest become the guest's
// arguments. It returns 0 or a negated MINIX errno; on success the machine
// is left in the ready state with the new program loaded.
func (p *Process) ExecuteWithHostParams(path string, argv []string, envp []string) int16 {
	if res := p.loadTool(path); res != 0 {
		return res
	}

	p.initializeArguments(argv[1:], envp)

	// Ready to go. Entering the ready state reinitializes the machine;
	// any previous register state is blown away.
	p.cpu.ChangeState(emu.StateReady)

	p.execLog.Debugf("exec_host(%q)", path)

	return 0
}

// ExecuteWithStackBlock emulates exec with an argument block that is
// already in MINIX format: a host-resident copy of the guest stack image,
// captured before guest memory was cleared. The block's argv and envp
// slots hold stack-base-relative offsets; each non-null slot is patched to
// an absolute guest address before the block is copied back in.
func (p *Process) ExecuteWithStackBlock(path string, stack []byte) int16 {
	p.cpu.ClearRAM()

	if res := p.loadTool(path); res != 0 {
		return res
	}

	// Skip argc, then rebase argv and envp in place.
	off := 4
	for range [2]int{} {
		for {
			v := binary.BigEndian.Uint32(stack[off:])
			if v == 0 {
				break
			}
			binary.BigEndian.PutUint32(stack[off:], v+uint32(minix.StackBase))
			off += 4
		}
		// Skip the NULL terminator.
		off += 4
	}

	p.cpu.CopyToRAM(minix.StackBase, stack)

	p.cpu.ChangeState(emu.StateReady)

	p.execLog.Debugf("exec(%q)", path)

	return 0
}
