package proc

import (
	"fmt"
	"os"
	"os/signal"

	sys "golang.org/x/sys/unix"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// Disposition is the guest-level policy for handling a signal.
type Disposition int

const (
	// DispositionDefault performs the signal's default action.
	DispositionDefault Disposition = iota
	// DispositionIgnore discards the signal.
	DispositionIgnore
	// DispositionError is the guest's SIG_ERR value. It is only ever
	// returned to the guest as an error sentinel, never installed by
	// well-behaved code.
	DispositionError
	// DispositionHandled runs a guest handler.
	DispositionHandled
)

// SignalAction pairs a disposition with the guest handler address used by
// DispositionHandled.
type SignalAction struct {
	Disposition Disposition
	Handler     minix.Address
}

// Guest handler words for the non-address dispositions, as MINIX defines
// SIG_DFL, SIG_IGN and SIG_ERR.
const (
	handlerWordDefault uint32 = 0x00000000
	handlerWordIgnore  uint32 = 0x00000001
	handlerWordError   uint32 = 0xffffffff
)

// ActionForWord decodes the handler word a guest passed to signal.
func ActionForWord(w uint32) SignalAction {
	switch w {
	case handlerWordDefault:
		return SignalAction{Disposition: DispositionDefault}
	case handlerWordIgnore:
		return SignalAction{Disposition: DispositionIgnore}
	case handlerWordError:
		return SignalAction{Disposition: DispositionError}
	default:
		return SignalAction{Disposition: DispositionHandled, Handler: minix.Address(w)}
	}
}

// Word encodes the action back into the guest's handler word.
func (a SignalAction) Word() uint32 {
	switch a.Disposition {
	case DispositionDefault:
		return handlerWordDefault
	case DispositionIgnore:
		return handlerWordIgnore
	case DispositionError:
		return handlerWordError
	default:
		return uint32(a.Handler)
	}
}

func (a SignalAction) String() string {
	switch a.Disposition {
	case DispositionDefault:
		return "SIG_DFL"
	case DispositionIgnore:
		return "SIG_IGN"
	case DispositionError:
		return "SIG_ERR"
	default:
		return fmt.Sprintf("%#08x", uint32(a.Handler))
	}
}

// HostSignalForSignal returns the host signal corresponding to the given
// MINIX signal. Every MINIX signal has a host counterpart; SIGUNUSED and
// SIGSTKFLT map to host signals the emulator is unlikely to ever receive.
func HostSignalForSignal(s minix.Signal) sys.Signal {
	switch s {
	case minix.SIGHUP:
		return sys.SIGHUP
	case minix.SIGINT:
		return sys.SIGINT
	case minix.SIGQUIT:
		return sys.SIGQUIT
	case minix.SIGILL:
		return sys.SIGILL
	case minix.SIGTRAP:
		return sys.SIGTRAP
	case minix.SIGABRT:
		return sys.SIGABRT
	case minix.SIGUNUSED:
		return sys.SIGXFSZ
	case minix.SIGFPE:
		return sys.SIGFPE
	case minix.SIGKILL:
		return sys.SIGKILL
	case minix.SIGUSR1:
		return sys.SIGUSR1
	case minix.SIGSEGV:
		return sys.SIGSEGV
	case minix.SIGUSR2:
		return sys.SIGUSR2
	case minix.SIGPIPE:
		return sys.SIGPIPE
	case minix.SIGALRM:
		return sys.SIGALRM
	case minix.SIGTERM:
		return sys.SIGTERM
	case minix.SIGSTKFLT:
		return sys.SIGXCPU
	default:
		return 0
	}
}

// SignalForHostSignal returns the MINIX signal corresponding to the given
// host signal, or 0 when MINIX has no equivalent; callers must not forward
// an untranslatable signal to the guest.
func SignalForHostSignal(s sys.Signal) minix.Signal {
	switch s {
	case sys.SIGHUP:
		return minix.SIGHUP
	case sys.SIGINT:
		return minix.SIGINT
	case sys.SIGQUIT:
		return minix.SIGQUIT
	case sys.SIGILL:
		return minix.SIGILL
	case sys.SIGTRAP:
		return minix.SIGTRAP
	case sys.SIGABRT:
		return minix.SIGABRT
	case sys.SIGXFSZ:
		return minix.SIGUNUSED
	case sys.SIGFPE:
		return minix.SIGFPE
	case sys.SIGKILL:
		return minix.SIGKILL
	case sys.SIGUSR1:
		return minix.SIGUSR1
	case sys.SIGSEGV:
		return minix.SIGSEGV
	case sys.SIGUSR2:
		return minix.SIGUSR2
	case sys.SIGPIPE:
		return minix.SIGPIPE
	case sys.SIGALRM:
		return minix.SIGALRM
	case sys.SIGTERM:
		return minix.SIGTERM
	case sys.SIGXCPU:
		return minix.SIGSTKFLT
	default:
		return 0
	}
}

// startSignalPump arranges for host-delivered signals to set pending flags.
// The pump goroutine does nothing beyond flag-setting: no allocation, no
// table mutation, no guest memory access. Everything else happens at the
// run loop's poll point, in DrainPendingSignals.
func (p *Process) startSignalPump() {
	p.sigCh = make(chan os.Signal, minix.NSig)
	go p.pumpSignals(p.sigCh)
}

// restartSignalPump rewires host signal delivery in the child of a fork:
// only the forking thread survives into the child, so the old pump
// goroutine and notification context are gone.
func (p *Process) restartSignalPump() {
	p.startSignalPump()
	for s := minix.SIGHUP; s <= minix.SIGSTKFLT; s++ {
		switch p.handlers[s].Disposition {
		case DispositionDefault, DispositionHandled:
			signal.Notify(p.sigCh, HostSignalForSignal(s))
		}
	}
}

func (p *Process) pumpSignals(ch <-chan os.Signal) {
	for hostSig := range ch {
		p.registerPendingSignal(hostSig)
	}
}

// registerPendingSignal records that a host signal arrived and needs to be
// processed at the next poll point. Untranslatable host signals are
// dropped. The per-signal flag is set before the global flag so a drain
// that observes the global flag always finds the specific signal.
func (p *Process) registerPendingSignal(hostSig os.Signal) {
	s, ok := hostSig.(sys.Signal)
	if !ok {
		return
	}
	if sig := SignalForHostSignal(s); sig != 0 {
		p.pending[sig].Store(true)
		p.hasPending.Store(true)
	}
}

// Signal emulates the MINIX signal call: it installs the new action for
// the given signal and returns the previous one. The signal number must be
// valid; an out-of-range signal is a bug in the trap dispatcher, not a
// guest-recoverable error.
func (p *Process) Signal(sig minix.Signal, action SignalAction) SignalAction {
	if !sig.Valid() {
		panic(fmt.Sprintf("proc: signal %d out of range", sig))
	}

	old := p.handlers[sig]
	p.handlers[sig] = action

	// Register a matching host-side disposition. Default and Handled both
	// want the signal recorded as pending so the poll point can act on it.
	hostSig := HostSignalForSignal(sig)
	switch action.Disposition {
	case DispositionIgnore:
		signal.Ignore(hostSig)
	case DispositionError:
		signal.Reset(hostSig)
	default:
		signal.Notify(p.sigCh, hostSig)
	}

	p.sigLog.Debugf("signal(%s (%d), %s) -> %s", sig, sig, action, old)

	return old
}

// Kill emulates the MINIX kill call, returning 0 or a negated MINIX errno.
func (p *Process) Kill(pid minix.Pid, sig minix.Signal) int16 {
	if pid <= 0 {
		panic("proc: kill of non-positive guest PID")
	}
	if !sig.Valid() {
		panic(fmt.Sprintf("proc: signal %d out of range", sig))
	}

	var result int16

	hostSig := HostSignalForSignal(sig)
	hostPID, ok := p.hostPidForMinix(pid)
	switch {
	case hostSig <= 0:
		result = -int16(minix.EINVAL)
	case !ok:
		result = -int16(minix.ESRCH)
	default:
		if err := sys.Kill(hostPID, hostSig); err != nil {
			result = -int16(minix.ErrnoForHost(err))
		}
	}

	p.sigLog.Debugf("kill(%d, %s (%d)) -> %d", pid, sig, sig, result)

	return result
}

// DrainPendingSignals is the poll point: it is called from the guest run
// loop between instruction batches, never from the asynchronous signal
// path. Pending signals are dispatched in ascending numeric order; multiple
// deliveries of one signal before a drain coalesce into a single dispatch,
// an accepted loss of signal-count fidelity.
func (p *Process) DrainPendingSignals() {
	if !p.hasPending.CompareAndSwap(true, false) {
		return
	}
	for sig := minix.SIGHUP; sig <= minix.SIGSTKFLT; sig++ {
		if p.pending[sig].CompareAndSwap(true, false) {
			p.handlePendingSignal(sig)
		}
	}
}

// handlePendingSignal dispatches one pending signal according to the
// guest's installed action.
func (p *Process) handlePendingSignal(sig minix.Signal) {
	action := p.handlers[sig]

	switch action.Disposition {
	case DispositionIgnore:
		return

	case DispositionError:
		// SIG_ERR is a return-value sentinel and should never actually
		// be installed; do nothing if it somehow was.
		p.sigLog.Debugf("SIG_ERR disposition for %s reached", sig)
		return

	case DispositionDefault:
		// The default action for every MINIX signal this can see is
		// handled host-side or amounts to nothing; no guest code runs.
		p.sigLog.Debugf("default action for %s", sig)
		return

	case DispositionHandled:
		// Synthesize the call frame the guest's _begsig trampoline
		// expects: push the current PC, then SR, then the signal
		// number, and jump to the handler. The trampoline finds the
		// signal number on top of the stack and its closing RTR
		// restores SR and PC, resuming exactly where the guest was
		// interrupted. A longjmp out of the handler is not supported.
		pc := p.cpu.PC()
		p.cpu.Push32(uint32(pc))
		p.cpu.Push16(p.cpu.SR())
		p.cpu.Push16(uint16(sig))
		p.cpu.SetPC(action.Handler)

		p.sigLog.Debugf("deliver %s -> handler %#08x (interrupted at %#08x)", sig, action.Handler, pc)
	}
}
