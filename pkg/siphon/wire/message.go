package wire

import "time"

// Method enumerates the request methods this proxy understands. Unlike the
// teacher's http11.MethodID (a dense 1..9 range tuned for a switch on
// length), siphon adds PROPFIND because the spec's HttpRequest invariant
// requires it, and keeps the set closed rather than open-ended: an
// unrecognized method is a parse error, not a pass-through string.
type Method string

const (
	MethodGET      Method = "GET"
	MethodPOST     Method = "POST"
	MethodPUT      Method = "PUT"
	MethodPATCH    Method = "PATCH"
	MethodDELETE   Method = "DELETE"
	MethodOPTIONS  Method = "OPTIONS"
	MethodHEAD     Method = "HEAD"
	MethodTRACE    Method = "TRACE"
	MethodCONNECT  Method = "CONNECT"
	MethodPROPFIND Method = "PROPFIND"
)

func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodGET, MethodPOST, MethodPUT, MethodPATCH, MethodDELETE,
		MethodOPTIONS, MethodHEAD, MethodTRACE, MethodCONNECT, MethodPROPFIND:
		return Method(s), true
	}
	return "", false
}

// HostAndPort identifies a proxy target: the host (name or IP literal),
// the port, and whether the connection to it should be TLS.
type HostAndPort struct {
	Host string
	Port uint16
	TLS  bool
}

func (hp HostAndPort) String() string {
	return hp.Host + ":" + portString(hp.Port)
}

func portString(p uint16) string {
	// avoid importing strconv at call sites that only want the combined form
	return itoa(int(p))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Request is a decoded or synthesized HTTP request.
type Request struct {
	Method     Method
	Target     string // request-target as it appeared on the wire (origin- or absolute-form)
	Proto      string // "HTTP/1.0" or "HTTP/1.1"
	Header     *Headers
	Body       []byte
	RemoteAddr string
	Timestamp  time.Time

	// Host is the resolved proxy target. For origin-form requests it is
	// filled in from the Host header; for CONNECT it is the tunnel target.
	Host HostAndPort
}

// IsSuccessful is defined on Response only; Request has no analogous
// invariant but exposes the helpers a rewrite/engine caller needs.

// ContentLength returns the request's declared Content-Length, or -1 if
// framed some other way.
func (r *Request) ContentLength() int64 {
	if r.Header == nil {
		return -1
	}
	return r.Header.ContentLength()
}

// KeepAlive reports whether the client asked (or HTTP/1.1 defaults) to
// keep the connection open after this exchange.
func (r *Request) KeepAlive() bool {
	conn := r.Header.Connection()
	if conn == "close" {
		return false
	}
	if r.Proto == "HTTP/1.0" {
		return conn == "keep-alive"
	}
	return true
}

// Response is a decoded or synthesized HTTP response.
type Response struct {
	Proto        string
	StatusCode   int
	ReasonPhrase string
	Header       *Headers
	Body         []byte
	Timestamp    time.Time
}

// IsSuccessful reports whether the status code is in [200, 300).
func (r *Response) IsSuccessful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentLength returns the response's declared Content-Length, or -1 if
// framed some other way.
func (r *Response) ContentLength() int64 {
	if r.Header == nil {
		return -1
	}
	return r.Header.ContentLength()
}

// KeepAlive reports whether the response permits connection reuse.
func (r *Response) KeepAlive(reqProto string) bool {
	conn := r.Header.Connection()
	if conn == "close" {
		return false
	}
	if r.Proto == "HTTP/1.0" || reqProto == "HTTP/1.0" {
		return conn == "keep-alive"
	}
	return true
}

// Exchange pairs a request with at most one response. It replaces the
// source's cyclic request<->response back-pointers (design note: "Cyclic
// request <-> response reference") with a flat owning struct — the table
// the design note asks for collapses to this single value at proxy scale,
// since an exchange is discarded as a unit once dispatched to subscribers.
type Exchange struct {
	ID         string
	Request    *Request
	Response   *Response // nil if the exchange aborted before a response arrived
	RemoteAddr string
	Started    time.Time
	DurationMs int64
}
