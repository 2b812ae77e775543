package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name string
		xff  string
		want string
	}{
		{"no header falls back", "", "127.0.0.1"},
		{"single", "203.0.113.5", "203.0.113.5"},
		{"first of chain", "203.0.113.5, 10.0.0.1, 10.0.0.2", "203.0.113.5"},
		{"whitespace", "  198.51.100.7 ,10.0.0.1", "198.51.100.7"},
		{"empty first entry", " , 10.0.0.1", "127.0.0.1"},
		{"ipv6", "2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientAddress(req); got != tt.want {
				t.Errorf("ClientAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestClientAddress_IgnoresRemoteAddr はRemoteAddrを使わず固定値に落ちることを検証する。
func TestClientAddress_IgnoresRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.44:51234"

	if got := ClientAddress(req); got != DefaultClientAddress {
		t.Errorf("ClientAddress() = %q, want %q", got, DefaultClientAddress)
	}
}
