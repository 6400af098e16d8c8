// Package wire implements the HTTP/1.x wire format: line scanning, the
// case-insensitive header store, request/response message types, the
// streaming body reader, and the incremental codec built on top of them.
package wire

import "errors"

// ParserError is returned when the wire format is malformed. It carries a
// snapshot of the offending bytes so the caller can synthesize a useful 400
// response or log the failure.
type ParserError struct {
	Msg  string
	Data []byte
}

func (e *ParserError) Error() string {
	return "wire: " + e.Msg
}

func newParserError(msg string, data []byte) *ParserError {
	snap := make([]byte, len(data))
	copy(snap, data)
	return &ParserError{Msg: msg, Data: snap}
}

var (
	// ErrLineTooLong is returned when a single line (initial line, header
	// line, chunk-size or trailer line) exceeds its configured size cap.
	ErrLineTooLong = errors.New("wire: line exceeds maximum size")

	// ErrChunkedEncoding indicates a malformed chunked transfer-encoding
	// stream (bad hex size, missing CRLF, truncated trailer section).
	ErrChunkedEncoding = errors.New("wire: invalid chunked encoding")

	// ErrInvalidHeader indicates a header line with no ": " separator, or
	// a name/value containing a bare CR or LF (response-splitting guard).
	ErrInvalidHeader = errors.New("wire: invalid header line")

	// ErrBodyAlreadyDone names the condition of feeding a BodyReader after
	// it has reported Done. BodyReader.Feed does not return it: it hands
	// such bytes back as unconsumed with done=true.
	ErrBodyAlreadyDone = errors.New("wire: body reader already done")

	// ErrUnsupportedMethod is returned when a request line's method is
	// not one of the methods this proxy understands.
	ErrUnsupportedMethod = errors.New("wire: unsupported method")

	// ErrInvalidHostPort indicates a CONNECT target or absolute-form URI
	// host could not be split into host and port.
	ErrInvalidHostPort = errors.New("wire: invalid host:port")
)
