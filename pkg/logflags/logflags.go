// Package logflags configures per-component logging for MINIXCompat.
// Logging is off by default and enabled per component from the command
// line, so that a single misbehaving guest program can be traced without
// drowning in output from the rest of the emulator.
package logflags

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var process = false
var syscall = false
var execflag = false
var sig = false
var fsflag = false

var logOut io.Writer

// logDestPath is set when logs go to a file; the child of a fork reopens
// its own file derived from it.
var logDestPath string

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	logger.Formatter = &logrus.TextFormatter{
		DisableColors: !isTerminal(),
		FullTimestamp: true,
	}
	if logOut != nil {
		logger.Out = logOut
	} else {
		logger.Out = colorable.NewColorableStderr()
	}
	logger.Level = logrus.DebugLevel
	if !flag {
		logger.Level = logrus.PanicLevel
	}
	return logger.WithFields(fields)
}

func isTerminal() bool {
	if logOut != nil {
		f, ok := logOut.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
	return isatty.IsTerminal(os.Stderr.Fd())
}

// Process returns true if process system calls should be logged.
func Process() bool {
	return process
}

// ProcessLogger returns a logger for the process subsystem.
func ProcessLogger() *logrus.Entry {
	return makeLogger(process, logrus.Fields{"layer": "proc"})
}

// SysCall returns true if system call dispatch should be logged.
func SysCall() bool {
	return syscall
}

// SysCallLogger returns a logger for system call dispatch.
func SysCallLogger() *logrus.Entry {
	return makeLogger(syscall, logrus.Fields{"layer": "syscall"})
}

// Exec returns true if executable loading and exec calls should be logged.
func Exec() bool {
	return execflag
}

// ExecLogger returns a logger for executable loading.
func ExecLogger() *logrus.Entry {
	return makeLogger(execflag, logrus.Fields{"layer": "exec"})
}

// Signal returns true if signal registration and delivery should be logged.
func Signal() bool {
	return sig
}

// SignalLogger returns a logger for signal handling.
func SignalLogger() *logrus.Entry {
	return makeLogger(sig, logrus.Fields{"layer": "signal"})
}

// FS returns true if guest path translation should be logged.
func FS() bool {
	return fsflag
}

// FSLogger returns a logger for the filesystem layer.
func FSLogger() *logrus.Entry {
	return makeLogger(fsflag, logrus.Fields{"layer": "fs"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr. The logDest
// argument is either a file descriptor number or a file path; when it is a
// path the actual file carries a .<pid> suffix so that forked children can
// each log to their own file.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		if n, err := strconv.Atoi(logDest); err == nil {
			logOut = os.NewFile(uintptr(n), "minixcompat-logs")
		} else {
			logDestPath = logDest
			if err := openLogFile(); err != nil {
				return err
			}
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "process"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "process":
			process = true
		case "syscall":
			syscall = true
		case "exec":
			execflag = true
		case "signal":
			sig = true
		case "fs":
			fsflag = true
		}
	}
	return nil
}

// Reinitialize reopens the log destination. A forked child must call this
// before anything else it logs, so that parent and child do not interleave
// writes to the same file.
func Reinitialize() error {
	if logDestPath == "" {
		return nil
	}
	return openLogFile()
}

func openLogFile() error {
	f, err := os.Create(fmt.Sprintf("%s.%d", logDestPath, os.Getpid()))
	if err != nil {
		return err
	}
	logOut = f
	return nil
}

// Close closes the file logs were being redirected to, if any.
func Close() {
	if f, ok := logOut.(*os.File); ok {
		f.Close()
	}
}
