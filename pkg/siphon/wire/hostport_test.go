package wire

import "testing"

func TestParseHostPortPlain(t *testing.T) {
	hp, err := ParseHostPort("example.com:8080", 80)
	if err != nil {
		t.Fatalf("ParseHostPort error: %v", err)
	}
	if hp.Host != "example.com" || hp.Port != 8080 {
		t.Fatalf("got %+v", hp)
	}
}

func TestParseHostPortDefaultPort(t *testing.T) {
	hp, err := ParseHostPort("example.com", 80)
	if err != nil {
		t.Fatalf("ParseHostPort error: %v", err)
	}
	if hp.Host != "example.com" || hp.Port != 80 {
		t.Fatalf("got %+v", hp)
	}
}

func TestParseHostPortIPv6Bracketed(t *testing.T) {
	hp, err := ParseHostPort("[::1]:9999", 80)
	if err != nil {
		t.Fatalf("ParseHostPort error: %v", err)
	}
	if hp.Host != "::1" || hp.Port != 9999 {
		t.Fatalf("got %+v", hp)
	}
}

func TestParseHostPortIPv6NoPortUsesDefault(t *testing.T) {
	hp, err := ParseHostPort("[::1]", 443)
	if err != nil {
		t.Fatalf("ParseHostPort error: %v", err)
	}
	if hp.Host != "::1" || hp.Port != 443 {
		t.Fatalf("got %+v", hp)
	}
}

func TestParseHostPortRejectsEmpty(t *testing.T) {
	if _, err := ParseHostPort("", 80); err == nil {
		t.Fatalf("expected error for empty target")
	}
}

func TestClassifyTargetConnectAlwaysTLS(t *testing.T) {
	hp, err := ClassifyTarget(MethodCONNECT, "example.com:443", "")
	if err != nil {
		t.Fatalf("ClassifyTarget error: %v", err)
	}
	if !hp.TLS || hp.Port != 443 {
		t.Fatalf("got %+v, want TLS=true port=443", hp)
	}
}

func TestClassifyTargetConnectRequiresExplicitPort(t *testing.T) {
	if _, err := ClassifyTarget(MethodCONNECT, "example.com", ""); err == nil {
		t.Fatalf("expected error for CONNECT target with no port")
	}
}

func TestClassifyTargetAbsoluteFormHTTPS(t *testing.T) {
	hp, err := ClassifyTarget(MethodGET, "https://example.com/path", "")
	if err != nil {
		t.Fatalf("ClassifyTarget error: %v", err)
	}
	if hp.Host != "example.com" || hp.Port != 443 || !hp.TLS {
		t.Fatalf("got %+v", hp)
	}
}

func TestClassifyTargetAbsoluteFormHTTPDefaultsPort80(t *testing.T) {
	hp, err := ClassifyTarget(MethodGET, "http://example.com/path", "")
	if err != nil {
		t.Fatalf("ClassifyTarget error: %v", err)
	}
	if hp.Host != "example.com" || hp.Port != 80 || hp.TLS {
		t.Fatalf("got %+v", hp)
	}
}

func TestClassifyTargetOriginFormUsesHostHeader(t *testing.T) {
	hp, err := ClassifyTarget(MethodGET, "/path", "example.com:8000")
	if err != nil {
		t.Fatalf("ClassifyTarget error: %v", err)
	}
	if hp.Host != "example.com" || hp.Port != 8000 {
		t.Fatalf("got %+v", hp)
	}
}

func TestClassifyTargetOriginFormRequiresHostHeader(t *testing.T) {
	if _, err := ClassifyTarget(MethodGET, "/path", ""); err == nil {
		t.Fatalf("expected error for origin-form request with no Host header")
	}
}
