//go:build !linux

package engine

import "net"

func applyListenerTuningPlatform(*net.TCPListener) {}

func applyConnTuningPlatform(*net.TCPConn) {}
