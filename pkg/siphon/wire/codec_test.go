package wire

import "testing"

func TestRequestDecoderSimpleGET(t *testing.T) {
	d := NewRequestDecoder()
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"

	req, rest, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if req == nil {
		t.Fatalf("req = nil, want decoded request")
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %q, want empty", rest)
	}
	if req.Method != MethodGET || req.Target != "/index.html" {
		t.Fatalf("got method=%s target=%s", req.Method, req.Target)
	}
	if req.Host.Host != "example.com" || req.Host.Port != 80 {
		t.Fatalf("got Host=%+v", req.Host)
	}
}

func TestRequestDecoderFeedsAcrossMultipleChunks(t *testing.T) {
	d := NewRequestDecoder()

	req, _, err := d.Feed([]byte("POST /submit HTTP/1.1\r\n"))
	if err != nil || req != nil {
		t.Fatalf("unexpected early completion: req=%v err=%v", req, err)
	}

	req, _, err = d.Feed([]byte("Host: example.com\r\nContent-Length: 5\r\n\r\n"))
	if err != nil || req != nil {
		t.Fatalf("unexpected completion before body: req=%v err=%v", req, err)
	}

	req, rest, err := d.Feed([]byte("hello"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if req == nil {
		t.Fatalf("req = nil, want decoded request")
	}
	if string(req.Body) != "hello" {
		t.Fatalf("Body = %q, want hello", req.Body)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %q, want empty", rest)
	}
}

func TestRequestDecoderPipelinedRequestsReturnUnconsumed(t *testing.T) {
	d := NewRequestDecoder()
	raw := "GET /a HTTP/1.1\r\nHost: example.com\r\n\r\nGET /b HTTP/1.1\r\nHost: example.com\r\n\r\n"

	req, rest, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if req.Target != "/a" {
		t.Fatalf("got target %q, want /a", req.Target)
	}
	if len(rest) == 0 {
		t.Fatalf("rest is empty, want the second pipelined request")
	}

	d.Reset()
	req2, _, err := d.Feed(rest)
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if req2.Target != "/b" {
		t.Fatalf("got target %q, want /b", req2.Target)
	}
}

func TestResponseDecoderChunkedBody(t *testing.T) {
	d := NewResponseDecoder(MethodGET)
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"

	resp, _, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if resp == nil {
		t.Fatalf("resp = nil, want decoded response")
	}
	if resp.StatusCode != 200 || string(resp.Body) != "hello" {
		t.Fatalf("got status=%d body=%q", resp.StatusCode, resp.Body)
	}
}

func TestResponseDecoderHeadHasNoBody(t *testing.T) {
	d := NewResponseDecoder(MethodHEAD)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"

	resp, rest, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if resp == nil {
		t.Fatalf("resp = nil, want decoded response")
	}
	if len(resp.Body) != 0 {
		t.Fatalf("Body = %q, want empty for HEAD response", resp.Body)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %q, want empty", rest)
	}
}

func TestResponseDecoderUntilCloseCompletesOnFeedEOF(t *testing.T) {
	d := NewResponseDecoder(MethodGET)
	raw := "HTTP/1.1 200 OK\r\n\r\nbody without framing"

	resp, _, err := d.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if resp != nil {
		t.Fatalf("resp = %+v, want nil before EOF (until-close body not yet complete)", resp)
	}

	resp = d.FeedEOF()
	if resp == nil {
		t.Fatalf("FeedEOF returned nil, want completed response")
	}
	if string(resp.Body) != "body without framing" {
		t.Fatalf("Body = %q, want %q", resp.Body, "body without framing")
	}
}

func TestResponseDecoderFeedEOFBeforeHeadersReturnsNil(t *testing.T) {
	d := NewResponseDecoder(MethodGET)
	_, _, err := d.Feed([]byte("HTTP/1.1 200 O"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if resp := d.FeedEOF(); resp != nil {
		t.Fatalf("FeedEOF = %+v, want nil when headers never completed", resp)
	}
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	req := &Request{
		Method: MethodGET,
		Target: "/path",
		Proto:  "HTTP/1.1",
		Header: NewHeaders(),
		Body:   nil,
	}
	req.Header.Add("Host", "example.com")

	buf := &byteSliceWriter{}
	if err := EncodeRequest(buf, req); err != nil {
		t.Fatalf("EncodeRequest error: %v", err)
	}

	d := NewRequestDecoder()
	decoded, _, err := d.Feed(buf.b)
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if decoded == nil || decoded.Target != "/path" {
		t.Fatalf("round-trip failed: %+v", decoded)
	}
}

type byteSliceWriter struct{ b []byte }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
