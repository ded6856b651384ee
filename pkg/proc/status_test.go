package proc

import (
	"testing"

	sys "golang.org/x/sys/unix"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// Host wait status encodings, as the kernel packs them: normal exit is
// code<<8, a stop is 0x7f with the signal above it, and termination by
// signal is the signal number in the low bits.
func hostExited(code int) sys.WaitStatus {
	return sys.WaitStatus(code << 8)
}

func hostStopped(sig sys.Signal) sys.WaitStatus {
	return sys.WaitStatus(0x7f | int(sig)<<8)
}

func hostSignaled(sig sys.Signal) sys.WaitStatus {
	return sys.WaitStatus(sig)
}

func TestStatusForHostExitRoundTrip(t *testing.T) {
	for code := 0; code <= 255; code++ {
		ws := statusForHost(hostExited(code))
		if !ws.Exited() {
			t.Fatalf("exit status %d: expected Exited", code)
		}
		if got := ws.ExitStatus(); got != int16(code) {
			t.Fatalf("exit status %d: got %d", code, got)
		}
	}
}

func TestStatusForHostStopped(t *testing.T) {
	ws := statusForHost(hostStopped(sys.SIGINT))
	if ws.Exited() {
		t.Fatal("stopped status reported as exited")
	}
	if got := ws.low(); got != stoppedSentinel {
		t.Fatalf("expected low byte %#o; got %#o", stoppedSentinel, got)
	}
	if got := ws.high(); got != uint8(minix.SIGINT) {
		t.Fatalf("expected stop signal %d in high byte; got %d", minix.SIGINT, got)
	}
}

func TestStatusForHostSignaled(t *testing.T) {
	ws := statusForHost(hostSignaled(sys.SIGTERM))
	if !ws.Signaled() {
		t.Fatal("expected Signaled")
	}
	if ws.Exited() {
		t.Fatal("signaled status reported as exited")
	}
	if got := ws.TermSignal(); got != minix.SIGTERM {
		t.Fatalf("expected term signal %d; got %d", minix.SIGTERM, got)
	}
}

func TestStatusForHostUnknownFallsBackToKill(t *testing.T) {
	// A host status that is neither exit, stop nor a translatable signal
	// is treated as termination by SIGKILL.
	ws := statusForHost(hostSignaled(sys.SIGIO))
	if !ws.Signaled() {
		t.Fatal("expected Signaled")
	}
	if got := ws.TermSignal(); got != minix.SIGKILL {
		t.Fatalf("expected SIGKILL fallback; got %d", got)
	}
}
