package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTunnelDrainTimeout bounds how long the engine waits for the
// opposite half of a CONNECT tunnel to finish draining after one side hits
// EOF, per spec §4.6 ("awaits final drain with a bounded timeout, default
// 10 s").
const DefaultTunnelDrainTimeout = 10 * time.Second

type halfCloser interface {
	CloseWrite() error
}

// pumpTunnel copies bytes bidirectionally between client and upstream
// until either side reaches EOF, then half-closes the corresponding
// direction and gives the other copy loop drainTimeout to finish before
// forcing both sockets closed. Grounded on the teacher's errgroup usage
// pattern for coordinated goroutine fan-out (capacitor's test harnesses use
// errgroup for first-error propagation; here it's applied to its intended
// purpose, a tunnel's two concurrent copy loops terminating together).
func pumpTunnel(ctx context.Context, client, upstream net.Conn, drainTimeout time.Duration) error {
	if drainTimeout <= 0 {
		drainTimeout = DefaultTunnelDrainTimeout
	}

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	firstDone := make(chan struct{})
	var once sync.Once
	markFirstDone := func() { once.Do(func() { close(firstDone) }) }

	g.Go(func() error {
		_, err := io.Copy(upstream, client)
		if hc, ok := upstream.(halfCloser); ok {
			_ = hc.CloseWrite()
		}
		markFirstDone()
		return ignoreCloseErr(err)
	})
	g.Go(func() error {
		_, err := io.Copy(client, upstream)
		if hc, ok := client.(halfCloser); ok {
			_ = hc.CloseWrite()
		}
		markFirstDone()
		return ignoreCloseErr(err)
	})

	go func() {
		defer close(done)
		_ = g.Wait()
	}()

	// The drain timer only starts once one direction has finished.
	select {
	case <-firstDone:
	case <-ctx.Done():
		_ = client.Close()
		_ = upstream.Close()
		<-done
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-time.After(drainTimeout):
		_ = client.Close()
		_ = upstream.Close()
		<-done
		return nil
	case <-ctx.Done():
		_ = client.Close()
		_ = upstream.Close()
		<-done
		return ctx.Err()
	}
}

// ignoreCloseErr treats a read/write against an already-closed connection
// as a normal tunnel termination, not a TunnelError worth surfacing.
func ignoreCloseErr(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
