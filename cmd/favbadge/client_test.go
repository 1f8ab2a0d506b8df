package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/favbadge/internal/config"
)

func TestServerURL(t *testing.T) {
	cfg = config.DefaultConfig()
	defer func() { clientOpts.server = "" }()

	tests := []struct {
		server   string
		expected string
	}{
		{"", "http://127.0.0.1:8787/status"},
		{":9000", "http://127.0.0.1:9000/status"},
		{"localhost:9000", "http://localhost:9000/status"},
		{"https://example.com/", "https://example.com/status"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			clientOpts.server = tt.server
			assert.Equal(t, tt.expected, serverURL("/status"))
		})
	}
}

func TestLocalIconPath(t *testing.T) {
	tests := []struct {
		src   string
		path  string
		local bool
	}{
		{"favicon.ico", "favicon.ico", true},
		{"/srv/www/favicon.png", "/srv/www/favicon.png", true},
		{"file:///srv/www/favicon.png", "/srv/www/favicon.png", true},
		{"data:image/png;base64,AAAA", "", false},
		{"https://example.com/favicon.ico", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			path, local := localIconPath(tt.src)
			assert.Equal(t, tt.local, local)
			assert.Equal(t, tt.path, path)
		})
	}
}
