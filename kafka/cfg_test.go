package kafka

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePartitions(t *testing.T) {
	avail := []int32{0, 1, 2, 3}
	tests := []struct {
		in     string
		exp    []int32
		expErr bool
	}{
		{"*", avail, false},
		{"1,3", []int32{1, 3}, false},
		{"1, 2", []int32{1, 2}, false},
		{"4", nil, true},
		{"a", nil, true},
	}
	for _, tt := range tests {
		got, err := ParsePartitions(tt.in, avail)
		if (err != nil) != tt.expErr {
			t.Errorf("ParsePartitions(%q): expected error %t, got %v", tt.in, tt.expErr, err)
			continue
		}
		if diff := cmp.Diff(tt.exp, got); diff != "" {
			t.Errorf("ParsePartitions(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestDiffPartitions(t *testing.T) {
	if diff := cmp.Diff([]int32{5}, DiffPartitions([]int32{1, 5}, []int32{0, 1, 2})); diff != "" {
		t.Errorf("DiffPartitions (-want +got):\n%s", diff)
	}
}
