//go:build linux && (arm64 || riscv64)

package proc

import "syscall"

// arm64 and riscv64 have no fork syscall; clone with SIGCHLD and no flags
// is the equivalent.
func sysFork() (int, syscall.Errno) {
	pid, _, errno := syscall.RawSyscall(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0)
	return int(pid), errno
}
