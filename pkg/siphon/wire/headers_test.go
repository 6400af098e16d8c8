package wire

import "testing"

func TestHeadersAddPreservesMultipleValuesAndOrder(t *testing.T) {
	h := NewHeaders()
	h.Add("Set-Cookie", "a=1")
	h.Add("Content-Type", "text/plain")
	h.Add("Set-Cookie", "b=2")

	if got := h.Values("Set-Cookie"); len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Fatalf("Values(Set-Cookie) = %v, want [a=1 b=2]", got)
	}

	var names []string
	h.Each(func(name string, values []string) { names = append(names, name) })
	if len(names) != 2 || names[0] != "Set-Cookie" || names[1] != "Content-Type" {
		t.Fatalf("Each order = %v, want [Set-Cookie Content-Type]", names)
	}
}

func TestHeadersLookupIsCaseInsensitive(t *testing.T) {
	h := NewHeaders()
	h.Add("Content-Length", "5")

	if h.Get("content-length") != "5" {
		t.Fatalf("Get(content-length) = %q, want 5", h.Get("content-length"))
	}
	if !h.Has("CONTENT-LENGTH") {
		t.Fatalf("Has(CONTENT-LENGTH) = false, want true")
	}
}

func TestHeadersSetReplacesAllValues(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Tag", "one")
	h.Add("X-Tag", "two")
	h.Set("X-Tag", "three")

	if got := h.Values("X-Tag"); len(got) != 1 || got[0] != "three" {
		t.Fatalf("Values(X-Tag) after Set = %v, want [three]", got)
	}
}

func TestHeadersDelRemovesAllValues(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Tag", "one")
	h.Add("X-Tag", "two")
	h.Del("x-tag")

	if h.Has("X-Tag") {
		t.Fatalf("Has(X-Tag) after Del = true, want false")
	}
}

func TestHeadersIsChunkedRequiresTrailingCoding(t *testing.T) {
	h := NewHeaders()
	h.Add("Transfer-Encoding", "gzip, chunked")
	if !h.IsChunked() {
		t.Fatalf("IsChunked() = false, want true")
	}

	h2 := NewHeaders()
	h2.Add("Transfer-Encoding", "chunked, gzip")
	if h2.IsChunked() {
		t.Fatalf("IsChunked() = true, want false when chunked is not last")
	}
}

func TestHeadersContentLengthInvalidReturnsNegativeOne(t *testing.T) {
	h := NewHeaders()
	h.Add("Content-Length", "not-a-number")
	if got := h.ContentLength(); got != -1 {
		t.Fatalf("ContentLength() = %d, want -1", got)
	}
}

func TestHeadersCloneIsIndependent(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Tag", "one")
	clone := h.Clone()
	clone.Add("X-Tag", "two")

	if len(h.Values("X-Tag")) != 1 {
		t.Fatalf("original mutated by clone: %v", h.Values("X-Tag"))
	}
}
