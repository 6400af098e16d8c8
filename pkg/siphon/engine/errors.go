package engine

import (
	"fmt"

	"github.com/yourusername/siphon/pkg/siphon/wire"
)

// Kind discriminates why an exchange failed, so the engine can pick the
// right synthesized status code and tag the event record published to
// subscribers.
type Kind int

const (
	KindParseError Kind = iota
	KindUpstreamConnectError
	KindUpstreamTimeoutError
	KindBodyLimitExceeded
	KindTunnelError
	KindConfigError
)

func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "ParseError"
	case KindUpstreamConnectError:
		return "UpstreamConnectError"
	case KindUpstreamTimeoutError:
		return "UpstreamTimeoutError"
	case KindBodyLimitExceeded:
		return "BodyLimitExceeded"
	case KindTunnelError:
		return "TunnelError"
	case KindConfigError:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// ProxyError replaces the source's exception-based parse failures with a
// Go-idiomatic typed error: a Kind for discrimination plus whatever partial
// request was decoded before the failure, since a partially-decoded
// request is still useful for the event record and for logging.
type ProxyError struct {
	Kind    Kind
	Err     error
	Partial *wire.Request
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Kind, e.Err)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

func newProxyError(kind Kind, err error, partial *wire.Request) *ProxyError {
	return &ProxyError{Kind: kind, Err: err, Partial: partial}
}

// statusFor maps an error Kind to the synthesized response status the
// engine sends when it can still write to the client (spec §4.6 failure
// transitions / §7 policy table).
func statusFor(kind Kind) (code int, reason string) {
	switch kind {
	case KindParseError:
		return 400, "Bad Request"
	case KindUpstreamConnectError:
		return 502, "Bad Gateway"
	case KindUpstreamTimeoutError:
		return 504, "Gateway Timeout"
	default:
		return 502, "Bad Gateway"
	}
}
