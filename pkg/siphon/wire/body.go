package wire

import "bytes"

// DefaultMaxBodyLength caps an until-close body (and, as a safety net, any
// body) at 4,096,000 bytes, per spec §4.2. Exceeding it truncates with a
// warning, not an error.
const DefaultMaxBodyLength = 4_096_000

// BodyMode selects how a BodyReader frames the body.
type BodyMode int

const (
	BodyEmpty BodyMode = iota
	BodyFixedLength
	BodyChunked
	BodyUntilClose
)

// SelectBodyMode implements the framing-mode decision table from spec
// §4.2: chunked wins over Content-Length when both are present (per RFC
// 7230 §3.3.3, to close off request smuggling via conflicting framing
// headers); empty-body status codes short-circuit everything else.
func SelectBodyMode(h *Headers, contentLength int64, statusCode int, isHead bool) BodyMode {
	if isHead || statusCode == 204 || statusCode == 304 || (statusCode >= 100 && statusCode < 200) {
		return BodyEmpty
	}
	if h.IsChunked() {
		return BodyChunked
	}
	if contentLength >= 0 {
		return BodyFixedLength
	}
	return BodyUntilClose
}

type chunkPhase int

const (
	phaseChunkSize chunkPhase = iota
	phaseChunkData
	phaseChunkCRLF
	phaseTrailer
	phaseChunkedDone
)

// BodyReader consumes body bytes under whichever framing SelectBodyMode
// chose, transparently stripping chunk envelopes. It is fed slices as they
// arrive and reports done once the body is complete; callers must stop
// feeding it bytes once Feed returns done=true (see BodyMode UntilClose,
// where "done" can mean "truncated", not just "connection closed").
//
// The chunk-size/trailer line parsing is grounded on
// shockwave/pkg/shockwave/http11/chunked.go, generalized from a
// bufio.Reader-blocking design to the incremental push style the rest of
// this package's codec uses, and sharing lineScanner with request/response
// parsing instead of its own bufio.Reader.
type BodyReader struct {
	mode BodyMode

	scanner lineScanner
	body    bytes.Buffer

	fixedRemaining int64
	maxLen         int64
	truncated      bool
	closedAtEOF    bool

	phase          chunkPhase
	chunkRemaining uint64
	crlfNeeded     int
}

// NewBodyReader constructs a reader for the given mode. contentLength is
// only consulted for BodyFixedLength; maxLen of 0 uses DefaultMaxBodyLength.
func NewBodyReader(mode BodyMode, contentLength int64, maxLen int64) *BodyReader {
	if maxLen <= 0 {
		maxLen = DefaultMaxBodyLength
	}
	br := &BodyReader{mode: mode, maxLen: maxLen}
	switch mode {
	case BodyFixedLength:
		br.fixedRemaining = contentLength
	case BodyChunked:
		br.phase = phaseChunkSize
	}
	return br
}

// Done reports whether the body is fully (or, for until-close bodies,
// sufficiently) read.
func (br *BodyReader) Done() bool {
	switch br.mode {
	case BodyEmpty:
		return true
	case BodyFixedLength:
		return br.fixedRemaining == 0
	case BodyChunked:
		return br.phase == phaseChunkedDone
	default: // BodyUntilClose
		return br.truncated || br.closedAtEOF
	}
}

// FinishAtEOF marks an until-close body complete once its connection has
// reached EOF. Until-close framing carries no in-band completion signal
// (§4.2), so the codec's read loop must call this explicitly when its
// underlying Read returns io.EOF instead of relying on Feed's return value.
func (br *BodyReader) FinishAtEOF() {
	if br.mode == BodyUntilClose {
		br.closedAtEOF = true
	}
}

// Truncated reports whether an until-close body hit DefaultMaxBodyLength
// and was cut short (spec §7, BodyLimitExceeded — a warning, not an error).
func (br *BodyReader) Truncated() bool {
	return br.truncated
}

// Body returns the accumulated body bytes so far.
func (br *BodyReader) Body() []byte {
	return br.body.Bytes()
}

// Feed consumes as much of data as the current framing mode allows and
// reports whether the body is now complete. It never reads past the body
// boundary: leftover bytes (e.g. the start of the next pipelined message)
// are returned as unconsumed.
func (br *BodyReader) Feed(data []byte) (unconsumed []byte, done bool, err error) {
	if br.Done() {
		return data, true, nil
	}

	switch br.mode {
	case BodyFixedLength:
		n := len(data)
		if int64(n) > br.fixedRemaining {
			n = int(br.fixedRemaining)
		}
		br.body.Write(data[:n])
		br.fixedRemaining -= int64(n)
		return data[n:], br.fixedRemaining == 0, nil

	case BodyUntilClose:
		n := len(data)
		room := br.maxLen - int64(br.body.Len())
		if int64(n) > room {
			n = int(room)
			br.body.Write(data[:n])
			br.truncated = true
			return data[n:], true, nil
		}
		br.body.Write(data)
		return nil, false, nil

	case BodyChunked:
		br.scanner.write(data)
		return br.feedChunked()

	default: // BodyEmpty
		return data, true, nil
	}
}

func (br *BodyReader) feedChunked() (unconsumed []byte, done bool, err error) {
	for {
		switch br.phase {
		case phaseChunkSize:
			line, ok, err := br.scanner.nextLine(64)
			if err != nil {
				return nil, false, ErrChunkedEncoding
			}
			if !ok {
				return nil, false, nil
			}
			size, perr := parseChunkSize(line)
			if perr != nil {
				return nil, false, perr
			}
			if size == 0 {
				br.phase = phaseTrailer
				continue
			}
			br.chunkRemaining = size
			br.phase = phaseChunkData

		case phaseChunkData:
			if br.scanner.available() == 0 {
				return nil, false, nil
			}
			take := br.chunkRemaining
			if uint64(br.scanner.available()) < take {
				take = uint64(br.scanner.available())
			}
			chunk := br.scanner.takeUpTo(int(take))
			if int64(br.body.Len()+len(chunk)) > br.maxLen {
				// Even chunked bodies are bounded; truncate rather than
				// exhaust memory on an adversarial chunk stream.
				room := int(br.maxLen) - br.body.Len()
				if room > 0 {
					br.body.Write(chunk[:room])
				}
				br.truncated = true
				br.phase = phaseChunkedDone
				return nil, true, nil
			}
			br.body.Write(chunk)
			br.chunkRemaining -= uint64(len(chunk))
			if br.chunkRemaining == 0 {
				br.crlfNeeded = 2
				br.phase = phaseChunkCRLF
			}

		case phaseChunkCRLF:
			if br.scanner.available() < br.crlfNeeded {
				return nil, false, nil
			}
			trail := br.scanner.takeUpTo(br.crlfNeeded)
			if !bytes.Equal(trail, crlf) {
				return nil, false, ErrChunkedEncoding
			}
			br.phase = phaseChunkSize

		case phaseTrailer:
			// Trailers are discarded per spec §4.2/§6.
			line, ok, err := br.scanner.nextLine(DefaultMaxInitialLineLength)
			if err != nil {
				return nil, false, ErrChunkedEncoding
			}
			if !ok {
				return nil, false, nil
			}
			if len(line) == 0 {
				br.phase = phaseChunkedDone
				return br.scanner.pending(), true, nil
			}
			// else: discard trailer field line, keep looping for more

		case phaseChunkedDone:
			return br.scanner.pending(), true, nil
		}
	}
}

func parseChunkSize(line []byte) (uint64, error) {
	if idx := bytes.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return 0, ErrChunkedEncoding
	}
	var size uint64
	for _, b := range line {
		size <<= 4
		switch {
		case b >= '0' && b <= '9':
			size |= uint64(b - '0')
		case b >= 'a' && b <= 'f':
			size |= uint64(b - 'a' + 10)
		case b >= 'A' && b <= 'F':
			size |= uint64(b - 'A' + 10)
		default:
			return 0, ErrChunkedEncoding
		}
	}
	return size, nil
}
