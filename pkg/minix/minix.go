// Package minix holds the guest-domain constants and types shared by the
// emulation subsystems: PIDs, signal numbers, error numbers and the fixed
// 68K memory map that MINIX 1.5 binaries are linked against.
package minix

// Pid is a MINIX process ID. MINIX uses 16-bit PIDs while the host may use
// 32-bit or larger PIDs, so the two spaces are related only through the
// process table.
type Pid int16

// Address is an address in the emulated 68K address space.
type Address uint32

// Signal is a MINIX signal number, in the range 1 through 16.
type Signal int16

// MINIX 1.5 signal numbers.
const (
	SIGHUP    Signal = 1
	SIGINT    Signal = 2
	SIGQUIT   Signal = 3
	SIGILL    Signal = 4
	SIGTRAP   Signal = 5
	SIGABRT   Signal = 6
	SIGUNUSED Signal = 7
	SIGFPE    Signal = 8
	SIGKILL   Signal = 9
	SIGUSR1   Signal = 10
	SIGSEGV   Signal = 11
	SIGUSR2   Signal = 12
	SIGPIPE   Signal = 13
	SIGALRM   Signal = 14
	SIGTERM   Signal = 15
	SIGSTKFLT Signal = 16

	// NSig is the number of MINIX signals; valid signals are 1..NSig.
	NSig = 16
)

var signalNames = [NSig + 1]string{
	"", "SIGHUP", "SIGINT", "SIGQUIT", "SIGILL", "SIGTRAP", "SIGABRT",
	"SIGUNUSED", "SIGFPE", "SIGKILL", "SIGUSR1", "SIGSEGV", "SIGUSR2",
	"SIGPIPE", "SIGALRM", "SIGTERM", "SIGSTKFLT",
}

// Valid reports whether s is a signal MINIX supports.
func (s Signal) Valid() bool {
	return s >= SIGHUP && s <= SIGSTKFLT
}

func (s Signal) String() string {
	if s.Valid() {
		return signalNames[s]
	}
	return "SIG?"
}

// The fixed 68K memory map. Text, data, bss and the heap occupy the low
// portion of the address space; the 64KB stack hangs off the top and grows
// downward.
const (
	ExecutableBase  Address = 0x00001000
	ExecutableLimit Address = 0x00fe0000
	StackBase       Address = 0x00ff0000
	StackLimit      Address = 0x00fe0000
)

// RAMSize is the size of the emulated address space: the 16MB reachable by
// a 68000's 24-bit address bus.
const RAMSize = 0x01000000

// EnvPrefix is the host environment firewall: only host environment
// variables carrying this prefix are passed through to guest programs,
// with the prefix stripped.
const EnvPrefix = "MINIX_"
