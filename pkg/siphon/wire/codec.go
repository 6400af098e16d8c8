package wire

import (
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"
)

// DecodeStage is the incremental decoder's state, per the design note that
// replaces the teacher's blocking Parser.Parse(io.Reader) with a push-based
// state machine: a proxy core cannot block a whole goroutine waiting on a
// slow client when it also has to service a server connection concurrently.
type DecodeStage int

const (
	StageReadInitial DecodeStage = iota
	StageReadHeader
	StageReadBody
	StageDone
)

// RequestDecoder incrementally decodes a Request, one Feed call per chunk
// of bytes read off a client connection.
type RequestDecoder struct {
	stage   DecodeStage
	scanner lineScanner
	req     *Request
	body    *BodyReader
}

// NewRequestDecoder returns a decoder ready to read a new request. The
// decoder does not set RemoteAddr; the caller stamps it on the decoded
// Request.
func NewRequestDecoder() *RequestDecoder {
	return &RequestDecoder{}
}

// Reset prepares the decoder to read another request on the same
// connection (HTTP keep-alive / pipelining). It clears the line scanner, so
// any bytes past the previous request's boundary must be passed back in
// through Feed (they are what Feed returned as unconsumed).
func (d *RequestDecoder) Reset() {
	d.stage = StageReadInitial
	d.scanner.reset()
	d.req = nil
	d.body = nil
}

// Feed advances decoding with newly read bytes. req is non-nil only once
// stage has reached StageDone; callers should stop calling Feed and start a
// new decode (via Reset) once that happens, re-feeding any bytes returned
// as unconsumed.
func (d *RequestDecoder) Feed(data []byte) (req *Request, unconsumed []byte, err error) {
	if len(data) > 0 {
		d.scanner.write(data)
	}

	if d.stage == StageReadInitial {
		method, target, proto, ok, err := parseInitialLine(&d.scanner, DefaultMaxInitialLineLength)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, nil
		}
		m, ok := ParseMethod(string(method))
		if !ok {
			return nil, nil, ErrUnsupportedMethod
		}
		d.req = &Request{
			Method: m,
			Target: string(target),
			Proto:  strings.TrimRight(string(proto), "\r"),
			Header: NewHeaders(),
		}
		d.stage = StageReadHeader
	}

	if d.stage == StageReadHeader {
		done, err := parseHeaderBlock(&d.scanner, d.req.Header, DefaultMaxInitialLineLength*4)
		if err != nil {
			return nil, nil, err
		}
		if !done {
			return nil, nil, nil
		}

		host, herr := ClassifyTarget(d.req.Method, d.req.Target, d.req.Header.Get("Host"))
		if herr != nil && d.req.Method != MethodCONNECT {
			// Origin-form requests with no usable Host are still decodable;
			// host resolution failure is reported to the caller, not fatal
			// to parsing.
		} else if herr == nil {
			d.req.Host = host
		}

		mode := SelectBodyMode(d.req.Header, d.req.Header.ContentLength(), 0, false)
		// Until-close framing applies to responses only: a request with
		// neither Transfer-Encoding nor Content-Length has no body.
		if d.req.Method == MethodCONNECT || mode == BodyUntilClose {
			mode = BodyEmpty
		}
		d.body = NewBodyReader(mode, d.req.Header.ContentLength(), 0)
		d.stage = StageReadBody
	}

	if d.stage == StageReadBody {
		rest, done, err := d.body.Feed(d.scanner.pending())
		d.scanner.dropPending(len(d.scanner.pending()) - len(rest))
		if err != nil {
			return nil, nil, err
		}
		if !done {
			return nil, nil, nil
		}
		d.req.Body = d.body.Body()
		d.stage = StageDone
		return d.req, rest, nil
	}

	return nil, nil, nil
}

// ResponseDecoder is RequestDecoder's mirror for the server-facing side of
// the proxy. reqMethod threads through the framing decision that depends
// on the request that provoked this response (HEAD suppresses a body
// regardless of headers); keep-alive is decided by the caller through
// Response.KeepAlive.
type ResponseDecoder struct {
	stage     DecodeStage
	scanner   lineScanner
	resp      *Response
	body      *BodyReader
	reqMethod Method
}

func NewResponseDecoder(reqMethod Method) *ResponseDecoder {
	return &ResponseDecoder{reqMethod: reqMethod}
}

func (d *ResponseDecoder) Reset(reqMethod Method) {
	d.stage = StageReadInitial
	d.scanner.reset()
	d.resp = nil
	d.body = nil
	d.reqMethod = reqMethod
}

// FeedEOF signals that the upstream connection has closed, completing an
// until-close body (§4.2) that Feed alone cannot detect. It returns the
// decoded response if the body is now complete, or nil if EOF arrived
// before headers finished (a malformed/truncated response).
func (d *ResponseDecoder) FeedEOF() *Response {
	if d.stage != StageReadBody || d.body == nil {
		return nil
	}
	d.body.FinishAtEOF()
	if !d.body.Done() {
		return nil
	}
	body, derr := decodeContentEncoding(d.body.Body(), d.resp.Header.ContentEncoding())
	if derr != nil {
		body = d.body.Body()
	}
	d.resp.Body = body
	d.stage = StageDone
	return d.resp
}

func (d *ResponseDecoder) Feed(data []byte) (resp *Response, unconsumed []byte, err error) {
	if len(data) > 0 {
		d.scanner.write(data)
	}

	if d.stage == StageReadInitial {
		proto, code, reason, ok, err := parseInitialLine(&d.scanner, DefaultMaxInitialLineLength)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, nil
		}
		status, serr := strconv.Atoi(string(code))
		if serr != nil {
			return nil, nil, newParserError("invalid status code", code)
		}
		d.resp = &Response{
			Proto:        strings.TrimRight(string(proto), "\r"),
			StatusCode:   status,
			ReasonPhrase: strings.TrimRight(string(reason), "\r"),
			Header:       NewHeaders(),
		}
		d.stage = StageReadHeader
	}

	if d.stage == StageReadHeader {
		done, err := parseHeaderBlock(&d.scanner, d.resp.Header, DefaultMaxInitialLineLength*4)
		if err != nil {
			return nil, nil, err
		}
		if !done {
			return nil, nil, nil
		}

		mode := SelectBodyMode(d.resp.Header, d.resp.Header.ContentLength(), d.resp.StatusCode, d.reqMethod == MethodHEAD)
		d.body = NewBodyReader(mode, d.resp.Header.ContentLength(), 0)
		d.stage = StageReadBody
	}

	if d.stage == StageReadBody {
		rest, done, err := d.body.Feed(d.scanner.pending())
		d.scanner.dropPending(len(d.scanner.pending()) - len(rest))
		if err != nil {
			return nil, nil, err
		}
		if !done {
			return nil, nil, nil
		}
		body, derr := decodeContentEncoding(d.body.Body(), d.resp.Header.ContentEncoding())
		if derr != nil {
			// An undecodable body is still forwarded verbatim; decoding is a
			// convenience for persistence/rewrite inspection, not a
			// correctness requirement of the tunnel itself.
			body = d.body.Body()
		}
		d.resp.Body = body
		d.stage = StageDone
		return d.resp, rest, nil
	}

	return nil, nil, nil
}

// decodeContentEncoding undoes gzip/br content-encoding for inspection and
// persistence. It runs once, at the Done transition, rather than inside
// BodyReader, keeping BodyReader's job limited to wire framing (spec §4.3
// step 4) — content-encoding is a message-level concern layered on top of
// whatever framing delivered the bytes.
func decodeContentEncoding(body []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "gzip":
		zr, err := gzip.NewReader(newByteReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readAllPooled(zr)
	case "br":
		br := brotli.NewReader(newByteReader(body))
		return readAllPooled(br)
	default:
		return body, nil
	}
}

func readAllPooled(r io.Reader) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

type byteReader struct {
	b []byte
	i int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

// EncodeRequest serializes a request onto the wire in one shot, using pooled
// buffers for the scratch space. Unlike decoding, encoding is not
// incremental: by the time a message is ready to send, it is fully
// constructed in memory (the rewrite stage may have replaced headers or
// body wholesale), so there is no benefit to streaming it out piecemeal.
func EncodeRequest(w io.Writer, r *Request) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(string(r.Method))
	buf.WriteString(" ")
	buf.WriteString(r.Target)
	buf.WriteString(" ")
	buf.WriteString(r.Proto)
	buf.Write(crlf)
	writeHeaders(buf, r.Header)
	buf.Write(crlf)
	buf.Write(r.Body)

	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeResponse serializes a response onto the wire in one shot.
func EncodeResponse(w io.Writer, r *Response) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(r.Proto)
	buf.WriteString(" ")
	buf.WriteString(strconv.Itoa(r.StatusCode))
	buf.WriteString(" ")
	buf.WriteString(r.ReasonPhrase)
	buf.Write(crlf)
	writeHeaders(buf, r.Header)
	buf.Write(crlf)
	buf.Write(r.Body)

	_, err := w.Write(buf.Bytes())
	return err
}

func writeHeaders(buf *bytebufferpool.ByteBuffer, h *Headers) {
	if h == nil {
		return
	}
	h.Each(func(name string, values []string) {
		for _, v := range values {
			buf.WriteString(name)
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.Write(crlf)
		}
	})
}
