package tool

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Host capability names reported by the probe tool.
const (
	CapPersistentStorage = "persistent_storage"
	CapSessionStorage    = "session_storage"
	CapSocketTransport   = "socket_transport"
	CapBackgroundWorker  = "background_worker"
	CapGraphicsContext   = "graphics_context"
	CapPeerTransport     = "peer_transport"
)

// CapabilityNames returns the fixed capability key set in probe order.
func CapabilityNames() []string {
	return []string{
		CapPersistentStorage,
		CapSessionStorage,
		CapSocketTransport,
		CapBackgroundWorker,
		CapGraphicsContext,
		CapPeerTransport,
	}
}

type probeFunc func(ctx context.Context) (bool, error)

// Probe synchronously tests the host for the fixed capability set and
// returns a name -> availability mapping. Every check is individually
// failure-tolerant: an error or panic while probing one capability marks
// that capability unavailable and leaves the others untouched.
func Probe(ctx context.Context) map[string]bool {
	checks := map[string]probeFunc{
		CapPersistentStorage: probePersistentStorage,
		CapSessionStorage:    probeSessionStorage,
		CapSocketTransport:   probeSocketTransport,
		CapBackgroundWorker:  probeBackgroundWorker,
		CapGraphicsContext:   probeGraphicsContext,
		CapPeerTransport:     probePeerTransport,
	}

	result := make(map[string]bool, len(checks))
	for _, name := range CapabilityNames() {
		result[name] = runProbe(ctx, checks[name])
	}
	return result
}

// runProbe shields the caller from a misbehaving check.
func runProbe(ctx context.Context, check probeFunc) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()
	ok, err := check(ctx)
	if err != nil {
		return false
	}
	return ok
}

// probePersistentStorage checks for a writable per-user config location.
func probePersistentStorage(_ context.Context) (bool, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return false, err
	}
	return dirWritable(dir)
}

// probeSessionStorage checks for a writable temp location.
func probeSessionStorage(_ context.Context) (bool, error) {
	return dirWritable(os.TempDir())
}

func dirWritable(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	f, err := os.CreateTemp(dir, "devtools-probe-*")
	if err != nil {
		return false, err
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true, nil
}

// probeSocketTransport checks that a loopback TCP listener can be opened.
func probeSocketTransport(_ context.Context) (bool, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return false, err
	}
	_ = l.Close()
	return true, nil
}

// probeBackgroundWorker checks that a background task can be scheduled
// and complete.
func probeBackgroundWorker(ctx context.Context) (bool, error) {
	done := make(chan struct{})
	go func() {
		close(done)
	}()
	select {
	case <-done:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(time.Second):
		return false, fmt.Errorf("probe: background worker did not complete")
	}
}

// probeGraphicsContext checks for a display server on the host.
func probeGraphicsContext(_ context.Context) (bool, error) {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "", nil
}

// probePeerTransport checks that a UDP socket can be opened for
// peer-to-peer style transports.
func probePeerTransport(_ context.Context) (bool, error) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return false, err
	}
	_ = conn.Close()
	return true, nil
}
