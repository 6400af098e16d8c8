//go:build linux

package engine

import (
	"net"

	"golang.org/x/sys/unix"
)

// applyListenerTuningPlatform sets TCP_DEFER_ACCEPT on the listening
// socket so the kernel doesn't wake the accept loop until the client has
// actually sent request bytes, mirroring
// shockwave/pkg/shockwave/socket/tuning_linux.go's applyListenerOptions
// but via golang.org/x/sys/unix instead of the standard syscall package.
func applyListenerTuningPlatform(ln *net.TCPListener) {
	raw, err := ln.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 5)
	})
}

// applyConnTuningPlatform sets TCP_USER_TIMEOUT on accepted client
// connections so dead client peers are detected faster than the kernel
// default, mirroring
// tuning_linux.go's applyPlatformOptions.
func applyConnTuningPlatform(conn *net.TCPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, 10000)
	})
}
