package jaeger

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw    string
		exp    map[string]string
		expErr bool
	}{
		{"", map[string]string{}, false},
		{"dc=eu, role=worker", map[string]string{"dc": "eu", "role": "worker"}, false},
		{"dc", nil, true},
		{"=eu", nil, true},
	}
	for _, tt := range tests {
		got, err := parseTags(tt.raw)
		if (err != nil) != tt.expErr {
			t.Errorf("parseTags(%q): expected error %t, got %v", tt.raw, tt.expErr, err)
			continue
		}
		if diff := cmp.Diff(tt.exp, got); diff != "" {
			t.Errorf("parseTags(%q) (-want +got):\n%s", tt.raw, diff)
		}
	}
}
