package minix

import (
	"errors"
	"io/fs"
	"syscall"
)

// Errno is a MINIX error number. Emulated system calls report failure by
// returning the negated Errno to the guest.
type Errno int16

// MINIX 1.5 error numbers. These share the classic V7 numbering for the
// first couple dozen entries but are a guest-side contract, not host errnos.
const (
	EPERM        Errno = 1
	ENOENT       Errno = 2
	ESRCH        Errno = 3
	EINTR        Errno = 4
	EIO          Errno = 5
	ENXIO        Errno = 6
	E2BIG        Errno = 7
	ENOEXEC      Errno = 8
	EBADF        Errno = 9
	ECHILD       Errno = 10
	EAGAIN       Errno = 11
	ENOMEM       Errno = 12
	EACCES       Errno = 13
	EFAULT       Errno = 14
	ENOTBLK      Errno = 15
	EBUSY        Errno = 16
	EEXIST       Errno = 17
	EXDEV        Errno = 18
	ENODEV       Errno = 19
	ENOTDIR      Errno = 20
	EISDIR       Errno = 21
	EINVAL       Errno = 22
	ENFILE       Errno = 23
	EMFILE       Errno = 24
	ENOTTY       Errno = 25
	ETXTBSY      Errno = 26
	EFBIG        Errno = 27
	ENOSPC       Errno = 28
	ESPIPE       Errno = 29
	EROFS        Errno = 30
	EMLINK       Errno = 31
	EPIPE        Errno = 32
	EDOM         Errno = 33
	ERANGE       Errno = 34
	EDEADLK      Errno = 35
	ENAMETOOLONG Errno = 36
	ENOLCK       Errno = 37
	ENOSYS       Errno = 38
	ENOTEMPTY    Errno = 39
)

var hostErrnos = map[syscall.Errno]Errno{
	syscall.EPERM:        EPERM,
	syscall.ENOENT:       ENOENT,
	syscall.ESRCH:        ESRCH,
	syscall.EINTR:        EINTR,
	syscall.EIO:          EIO,
	syscall.ENXIO:        ENXIO,
	syscall.E2BIG:        E2BIG,
	syscall.ENOEXEC:      ENOEXEC,
	syscall.EBADF:        EBADF,
	syscall.ECHILD:       ECHILD,
	syscall.EAGAIN:       EAGAIN,
	syscall.ENOMEM:       ENOMEM,
	syscall.EACCES:       EACCES,
	syscall.EFAULT:       EFAULT,
	syscall.ENOTBLK:      ENOTBLK,
	syscall.EBUSY:        EBUSY,
	syscall.EEXIST:       EEXIST,
	syscall.EXDEV:        EXDEV,
	syscall.ENODEV:       ENODEV,
	syscall.ENOTDIR:      ENOTDIR,
	syscall.EISDIR:       EISDIR,
	syscall.EINVAL:       EINVAL,
	syscall.ENFILE:       ENFILE,
	syscall.EMFILE:       EMFILE,
	syscall.ENOTTY:       ENOTTY,
	syscall.ETXTBSY:      ETXTBSY,
	syscall.EFBIG:        EFBIG,
	syscall.ENOSPC:       ENOSPC,
	syscall.ESPIPE:       ESPIPE,
	syscall.EROFS:        EROFS,
	syscall.EMLINK:       EMLINK,
	syscall.EPIPE:        EPIPE,
	syscall.EDOM:         EDOM,
	syscall.ERANGE:       ERANGE,
	syscall.EDEADLK:      EDEADLK,
	syscall.ENAMETOOLONG: ENAMETOOLONG,
	syscall.ENOLCK:       ENOLCK,
	syscall.ENOSYS:       ENOSYS,
	syscall.ENOTEMPTY:    ENOTEMPTY,
}

// ErrnoForHost translates a host error into the MINIX error space. Wrapped
// errors (fs.PathError and friends) are unwrapped to reach the underlying
// host errno. Host errors with no MINIX counterpart report EIO, the catchall
// MINIX uses for kernel-level surprises.
func ErrnoForHost(err error) Errno {
	if err == nil {
		return 0
	}
	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		if me, ok := hostErrnos[sysErr]; ok {
			return me
		}
		return EIO
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ENOENT
	case errors.Is(err, fs.ErrPermission):
		return EACCES
	case errors.Is(err, fs.ErrExist):
		return EEXIST
	}
	return EIO
}
