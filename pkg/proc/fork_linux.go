//go:build linux && !arm64 && !riscv64

package proc

import "syscall"

// sysFork duplicates the host process. It returns the child's host PID in
// the parent, 0 in the child, and a nonzero errno on failure.
func sysFork() (int, syscall.Errno) {
	pid, _, errno := syscall.RawSyscall(syscall.SYS_FORK, 0, 0, 0)
	return int(pid), errno
}
