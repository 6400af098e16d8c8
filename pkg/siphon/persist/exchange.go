// Package persist implements the JSON wire shapes spec §6 documents for
// exported captures, using github.com/goccy/go-json as a faster drop-in
// encoder for the same struct tags encoding/json would use.
package persist

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/yourusername/siphon/pkg/siphon/wire"
)

// jsonRequest mirrors spec §6's HttpRequest wire shape.
type jsonRequest struct {
	Class   string              `json:"_class"`
	URI     string              `json:"uri"`
	Method  string              `json:"method"`
	Headers map[string][]string `json:"headers"`
	Body    *string             `json:"body"`
}

// jsonStatus is the nested status object inside jsonResponse.
type jsonStatus struct {
	Code         int    `json:"code"`
	ReasonPhrase string `json:"reasonPhrase"`
}

// jsonResponse mirrors spec §6's HttpResponse wire shape.
type jsonResponse struct {
	Class           string              `json:"_class"`
	ProtocolVersion string              `json:"protocolVersion"`
	Status          jsonStatus          `json:"status"`
	Headers         map[string][]string `json:"headers"`
	Body            *string             `json:"body"`
}

// latin1Encode renders body as Latin-1-bytes-to-string (each byte becomes
// one code unit), per spec §6, so binary bodies survive JSON round-tripping
// without base64 framing.
func latin1Encode(body []byte) *string {
	if body == nil {
		return nil
	}
	var b strings.Builder
	b.Grow(len(body))
	for _, c := range body {
		b.WriteRune(rune(c))
	}
	s := b.String()
	return &s
}

func latin1Decode(s *string) []byte {
	if s == nil {
		return nil
	}
	out := make([]byte, 0, len(*s))
	for _, r := range *s {
		out = append(out, byte(r))
	}
	return out
}

// MarshalRequest renders req as spec §6's HttpRequest JSON shape.
func MarshalRequest(req *wire.Request) ([]byte, error) {
	return json.Marshal(jsonRequest{
		Class:   "HttpRequest",
		URI:     req.Target,
		Method:  string(req.Method),
		Headers: req.Header.ToMap(),
		Body:    latin1Encode(req.Body),
	})
}

// MarshalResponse renders resp as spec §6's HttpResponse JSON shape.
func MarshalResponse(resp *wire.Response) ([]byte, error) {
	return json.Marshal(jsonResponse{
		Class:           "HttpResponse",
		ProtocolVersion: resp.Proto,
		Status: jsonStatus{
			Code:         resp.StatusCode,
			ReasonPhrase: resp.ReasonPhrase,
		},
		Headers: resp.Header.ToMap(),
		Body:    latin1Encode(resp.Body),
	})
}

// UnmarshalRequest parses spec §6's HttpRequest JSON shape back into a
// wire.Request, for the out-of-scope disk-persistence collaborator to
// round-trip captures through.
func UnmarshalRequest(data []byte) (*wire.Request, error) {
	var jr jsonRequest
	if err := json.Unmarshal(data, &jr); err != nil {
		return nil, err
	}
	method, _ := wire.ParseMethod(jr.Method)
	h := wire.NewHeaders()
	for name, values := range jr.Headers {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	return &wire.Request{
		Method: method,
		Target: jr.URI,
		Header: h,
		Body:   latin1Decode(jr.Body),
	}, nil
}

// UnmarshalResponse parses spec §6's HttpResponse JSON shape.
func UnmarshalResponse(data []byte) (*wire.Response, error) {
	var jr jsonResponse
	if err := json.Unmarshal(data, &jr); err != nil {
		return nil, err
	}
	h := wire.NewHeaders()
	for name, values := range jr.Headers {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	return &wire.Response{
		Proto:        jr.ProtocolVersion,
		StatusCode:   jr.Status.Code,
		ReasonPhrase: jr.Status.ReasonPhrase,
		Header:       h,
		Body:         latin1Decode(jr.Body),
	}, nil
}

// EventRecord mirrors spec §6's event-channel shape for JSON persistence of
// a completed (or aborted) exchange.
type EventRecord struct {
	Request       *jsonRequest  `json:"request"`
	Response      *jsonResponse `json:"response"`
	RemoteAddress string        `json:"remoteAddress"`
	DurationMs    int64         `json:"durationMs"`
}

// MarshalExchange renders an Exchange as the event-channel JSON record.
func MarshalExchange(ex wire.Exchange) ([]byte, error) {
	rec := EventRecord{
		RemoteAddress: ex.RemoteAddr,
		DurationMs:    ex.DurationMs,
	}
	if ex.Request != nil {
		rec.Request = &jsonRequest{
			Class:   "HttpRequest",
			URI:     ex.Request.Target,
			Method:  string(ex.Request.Method),
			Headers: ex.Request.Header.ToMap(),
			Body:    latin1Encode(ex.Request.Body),
		}
	}
	if ex.Response != nil {
		rec.Response = &jsonResponse{
			Class:           "HttpResponse",
			ProtocolVersion: ex.Response.Proto,
			Status: jsonStatus{
				Code:         ex.Response.StatusCode,
				ReasonPhrase: ex.Response.ReasonPhrase,
			},
			Headers: ex.Response.Header.ToMap(),
			Body:    latin1Encode(ex.Response.Body),
		}
	}
	return json.Marshal(rec)
}

// ExchangeStore is the out-of-scope disk-persistence collaborator's
// interface: siphon only needs to hand it completed exchanges, never reads
// them back, so the interface is write-only.
type ExchangeStore interface {
	Store(ex wire.Exchange) error
}
