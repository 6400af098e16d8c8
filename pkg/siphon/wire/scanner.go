package wire

import "bytes"

// DefaultMaxInitialLineLength caps the request-line/status-line a scanner
// will accept before giving up with ErrLineTooLong.
const DefaultMaxInitialLineLength = 10240

var crlf = []byte("\r\n")

// lineScanner extracts CRLF-terminated lines out of a growing byte buffer.
// It is shared by request and response parsing: feed it bytes as they
// arrive off the wire, pull lines back out as they complete. A scanner is
// reset (via reset) before starting a new message on the same connection.
type lineScanner struct {
	buf      []byte
	searched int // prefix of buf already scanned for CRLF with no match
}

func (s *lineScanner) reset() {
	s.buf = s.buf[:0]
	s.searched = 0
}

func (s *lineScanner) write(p []byte) {
	s.buf = append(s.buf, p...)
}

// pending returns bytes accumulated but not yet consumed as a line — used
// by the body reader to recover bytes that were read along with the header
// block but belong to the body.
func (s *lineScanner) pending() []byte {
	return s.buf
}

func (s *lineScanner) dropPending(n int) {
	s.buf = s.buf[n:]
	s.searched = 0
}

// takeUpTo removes and returns up to n raw bytes from the front of the
// buffer, bypassing CRLF search — used by the chunked body reader to pull
// binary chunk data rather than a delimited line.
func (s *lineScanner) takeUpTo(n int) []byte {
	if n > len(s.buf) {
		n = len(s.buf)
	}
	data := s.buf[:n]
	s.buf = s.buf[n:]
	s.searched = 0
	return data
}

func (s *lineScanner) available() int {
	return len(s.buf)
}

// nextLine returns the next CRLF-terminated line (without the CRLF) and
// advances past it. ok is false with a nil error when more bytes are
// needed; err is non-nil when the line is longer than maxSize, or when the
// accumulated buffer exceeds maxSize before a CRLF was found.
func (s *lineScanner) nextLine(maxSize int) (line []byte, ok bool, err error) {
	idx := bytes.Index(s.buf[s.searched:], crlf)
	if idx < 0 {
		if len(s.buf) > maxSize {
			return nil, false, ErrLineTooLong
		}
		// Keep re-scanning from one byte before the end next time, in case
		// a CR arrived at the very end of this write and the LF is still
		// to come.
		if len(s.buf) > 0 {
			s.searched = len(s.buf) - 1
		}
		return nil, false, nil
	}

	end := s.searched + idx
	if end > maxSize {
		return nil, false, ErrLineTooLong
	}
	line = s.buf[:end]
	s.buf = s.buf[end+2:]
	s.searched = 0
	return line, true, nil
}

// parseInitialLine consumes bytes up to the first CRLF within maxSize and
// splits it into three whitespace-delimited tokens (method/URI/version, or
// version/code/reason). Splitting uses the first two ASCII SP bytes; all
// remaining bytes, including further spaces, form the third token.
func parseInitialLine(s *lineScanner, maxSize int) (a, b, c []byte, ok bool, err error) {
	line, ok, err := s.nextLine(maxSize)
	if err != nil || !ok {
		return nil, nil, nil, ok, err
	}

	first := bytes.IndexByte(line, ' ')
	if first < 0 {
		return nil, nil, nil, false, newParserError("parseLine error", line)
	}
	rest := line[first+1:]
	second := bytes.IndexByte(rest, ' ')
	if second < 0 {
		return nil, nil, nil, false, newParserError("parseLine error", line)
	}

	a = line[:first]
	b = rest[:second]
	c = rest[second+1:]
	if len(a) == 0 || len(b) == 0 || len(c) == 0 {
		return nil, nil, nil, false, newParserError("parseLine error", line)
	}
	return a, b, c, true, nil
}

// parseHeaderBlock repeatedly extracts CRLF-terminated lines from s,
// splitting each at the first ": " into (name, value), until an empty line
// terminates the header section. It returns done=true once the terminator
// is seen. If the buffer ends mid-line the partial line is retained inside
// s and the function returns done=false for the caller to retry once more
// bytes arrive.
func parseHeaderBlock(s *lineScanner, h *Headers, maxSize int) (done bool, err error) {
	for {
		line, ok, err := s.nextLine(maxSize)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if len(line) == 0 {
			return true, nil
		}

		sep := bytes.Index(line, []byte(": "))
		if sep < 0 {
			return false, ErrInvalidHeader
		}
		name := line[:sep]
		value := line[sep+2:]
		if bytes.IndexAny(name, "\r\n") >= 0 || bytes.IndexAny(value, "\r\n") >= 0 {
			return false, ErrInvalidHeader
		}
		h.Add(string(name), string(value))
	}
}
