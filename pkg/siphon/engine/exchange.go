package engine

import (
	"net"
	"strconv"
	"time"

	"github.com/yourusername/siphon/pkg/siphon/wire"
)

// DefaultClientReadBufferSize matches the teacher's connection read buffer
// default (shockwave/http11.DefaultConnectionConfig).
const DefaultClientReadBufferSize = 4096

// readRequest pulls bytes from conn into dec until a full request decodes,
// reusing any bytes already buffered past the previous request's boundary
// (pipelining / keep-alive). It mirrors the teacher's Connection.Serve loop
// calling Parser.Parse(reader) once per request, generalized to the push
// decoder's Feed/unconsumed contract instead of a blocking io.Reader.
func readRequest(conn net.Conn, dec *wire.RequestDecoder, leftover []byte) (*wire.Request, []byte, error) {
	buf := make([]byte, DefaultClientReadBufferSize)
	pending := leftover

	for {
		req, rest, err := dec.Feed(pending)
		pending = nil
		if err != nil {
			return nil, nil, err
		}
		if req != nil {
			return req, rest, nil
		}

		n, err := conn.Read(buf)
		if n == 0 && err != nil {
			return nil, nil, err
		}
		pending = buf[:n]
	}
}

// readResponse additionally handles BodyUntilClose framing (spec §4.2),
// which has no in-band end marker: the upstream closing the connection is
// itself the completion signal, so an io.EOF from conn.Read is fed to the
// decoder via FeedEOF instead of being propagated as a read failure.
func readResponse(conn net.Conn, dec *wire.ResponseDecoder, leftover []byte) (*wire.Response, []byte, error) {
	buf := make([]byte, DefaultClientReadBufferSize)
	pending := leftover

	for {
		resp, rest, err := dec.Feed(pending)
		pending = nil
		if err != nil {
			return nil, nil, err
		}
		if resp != nil {
			return resp, rest, nil
		}

		n, err := conn.Read(buf)
		if n > 0 {
			pending = buf[:n]
			continue
		}
		if err != nil {
			if resp := dec.FeedEOF(); resp != nil {
				return resp, nil, nil
			}
			return nil, nil, err
		}
	}
}

// applyRequestRewrite implements spec §4.5's request-body half: if the
// matched rule carries a replacement request body, it overwrites req.Body
// and recomputes Content-Length, dropping Transfer-Encoding since the body
// is no longer chunked once it's a fixed in-memory replacement.
func applyRequestRewrite(req *wire.Request, body *string) {
	if body == nil {
		return
	}
	req.Body = []byte(*body)
	req.Header.Del("Transfer-Encoding")
	req.Header.Set("Content-Length", strconv.Itoa(len(req.Body)))
}

// applyResponseRewrite is applyRequestRewrite's mirror for the upstream
// response leg, and additionally drops Content-Encoding: per spec S3, a
// replaced body is plaintext, so advertising the old encoding would make
// the client try (and fail) to decode it.
func applyResponseRewrite(resp *wire.Response, body *string) {
	if body == nil {
		return
	}
	resp.Body = []byte(*body)
	resp.Header.Del("Transfer-Encoding")
	resp.Header.Del("Content-Encoding")
	resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
}

// writeSimpleResponse synthesizes and writes a bodyless error response,
// used when the engine must fail an exchange before any response bytes
// have reached the client (spec §4.6 failure transitions).
func writeSimpleResponse(conn net.Conn, status int, reason string) error {
	resp := &wire.Response{
		Proto:        "HTTP/1.1",
		StatusCode:   status,
		ReasonPhrase: reason,
		Header:       wire.NewHeaders(),
		Timestamp:    time.Now(),
	}
	resp.Header.Set("Content-Length", "0")
	resp.Header.Set("Connection", "close")
	return wire.EncodeResponse(conn, resp)
}
