package engine

import "net"

// applyListenerTuning and applyConnTuning apply best-effort socket options;
// failures are non-critical (the listener/connection still works with OS
// defaults) so both are generalized from the teacher's
// shockwave/pkg/shockwave/socket.Apply/ApplyListener into void-returning
// helpers the accept loop can call unconditionally, with the actual
// syscalls isolated in tuning_linux.go behind a build tag, exactly as the
// teacher splits tuning_linux.go from tuning_darwin.go/tuning_other.go.
func applyListenerTuning(ln net.Listener) {
	tcpListener, ok := ln.(*net.TCPListener)
	if !ok {
		return
	}
	applyListenerTuningPlatform(tcpListener)
}

func applyConnTuning(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcpConn.SetNoDelay(true)
	_ = tcpConn.SetKeepAlive(true)
	applyConnTuningPlatform(tcpConn)
}
