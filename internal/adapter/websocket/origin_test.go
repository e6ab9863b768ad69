package websocket

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := []string{"https://canvas.example.com/app", "http://localhost:3000"}

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty origin", allowed, "", true},
		{"allowed origin", allowed, "https://canvas.example.com", true},
		{"case insensitive", allowed, "HTTPS://Canvas.Example.com", true},
		{"localhost with port", allowed, "http://localhost:3000", true},

		{"different host", allowed, "https://evil.com", false},
		{"different port", allowed, "https://canvas.example.com:9090", false},
		{"http instead of https", allowed, "http://canvas.example.com", false},
		{"subdomain", allowed, "https://sub.canvas.example.com", false},

		{"no allow list", nil, "https://anything.example.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCheckOrigin(tt.allowed)
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/path", "https://example.com"},
		{"https://example.com:8443/path", "https://example.com:8443"},
		{" http://LOCALHOST:8080 ", "http://localhost:8080"},
		{"", ""},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeOrigin(tt.raw))
		})
	}
}
