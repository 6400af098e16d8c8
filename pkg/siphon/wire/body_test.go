package wire

import "testing"

func TestBodyReaderChunkedSimple(t *testing.T) {
	br := NewBodyReader(BodyChunked, -1, 0)
	rest, done, err := br.Feed([]byte("4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if !done {
		t.Fatalf("done = false, want true")
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %q, want empty", rest)
	}
	if string(br.Body()) != "Wikipedia" {
		t.Fatalf("Body() = %q, want Wikipedia", br.Body())
	}
}

func TestBodyReaderChunkedZeroSizeIsEmptyBody(t *testing.T) {
	br := NewBodyReader(BodyChunked, -1, 0)
	_, done, err := br.Feed([]byte("0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if !done {
		t.Fatalf("done = false, want true")
	}
	if len(br.Body()) != 0 {
		t.Fatalf("Body() = %q, want empty", br.Body())
	}
}

func TestBodyReaderChunkedIgnoresExtensions(t *testing.T) {
	br := NewBodyReader(BodyChunked, -1, 0)
	_, done, err := br.Feed([]byte("4;foo=bar\r\nWiki\r\n0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if !done || string(br.Body()) != "Wiki" {
		t.Fatalf("Body() = %q, done=%v; want Wiki, true", br.Body(), done)
	}
}

func TestBodyReaderFixedLengthStopsAtContentLength(t *testing.T) {
	br := NewBodyReader(BodyFixedLength, 5, 0)
	rest, done, err := br.Feed([]byte("helloEXTRA"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if !done {
		t.Fatalf("done = false, want true")
	}
	if string(br.Body()) != "hello" {
		t.Fatalf("Body() = %q, want hello", br.Body())
	}
	if string(rest) != "EXTRA" {
		t.Fatalf("rest = %q, want EXTRA", rest)
	}
}

func TestBodyReaderUntilCloseAccumulatesUntilFed(t *testing.T) {
	br := NewBodyReader(BodyUntilClose, -1, 0)
	_, done, err := br.Feed([]byte("partial"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if done {
		t.Fatalf("done = true after a feed, want false (until-close needs explicit completion signal)")
	}
	if string(br.Body()) != "partial" {
		t.Fatalf("Body() = %q, want partial", br.Body())
	}
}

func TestBodyReaderUntilCloseTruncatesAtMaxLength(t *testing.T) {
	br := NewBodyReader(BodyUntilClose, -1, 8)
	_, done, err := br.Feed([]byte("0123456789"))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if !done {
		t.Fatalf("done = false, want true once max length is hit")
	}
	if !br.Truncated() {
		t.Fatalf("Truncated() = false, want true")
	}
	if len(br.Body()) != 8 {
		t.Fatalf("Body() length = %d, want 8", len(br.Body()))
	}
}

func TestBodyReaderEmptyIsImmediatelyDone(t *testing.T) {
	br := NewBodyReader(BodyEmpty, -1, 0)
	if !br.Done() {
		t.Fatalf("Done() = false, want true for BodyEmpty before any Feed")
	}
}

func TestSelectBodyModeChunkedWinsOverContentLength(t *testing.T) {
	h := NewHeaders()
	h.Add("Transfer-Encoding", "chunked")
	h.Add("Content-Length", "100")

	mode := SelectBodyMode(h, 100, 200, false)
	if mode != BodyChunked {
		t.Fatalf("mode = %v, want BodyChunked", mode)
	}
}

func TestSelectBodyModeEmptyStatusCodes(t *testing.T) {
	h := NewHeaders()
	for _, code := range []int{204, 304, 100} {
		if mode := SelectBodyMode(h, -1, code, false); mode != BodyEmpty {
			t.Fatalf("status %d: mode = %v, want BodyEmpty", code, mode)
		}
	}
}

func TestSelectBodyModeHeadIsAlwaysEmpty(t *testing.T) {
	h := NewHeaders()
	h.Add("Content-Length", "500")
	if mode := SelectBodyMode(h, 500, 200, true); mode != BodyEmpty {
		t.Fatalf("mode = %v, want BodyEmpty for HEAD", mode)
	}
}
