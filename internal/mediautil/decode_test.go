package mediautil

import "testing"

func TestDecodedFramesRegex(t *testing.T) {
	tests := []struct {
		line    string
		wantN   string
		wantM   string
		matches bool
	}{
		{"Decoded 150/150 frames", "150", "150", true},
		{"frame 42 Decoded 42/150 frames in 1.2s", "42", "150", true},
		{"no such summary here", "", "", false},
	}

	for _, tt := range tests {
		m := decodedFramesRegex.FindStringSubmatch(tt.line)
		if tt.matches && m == nil {
			t.Errorf("expected match for %q", tt.line)
			continue
		}
		if !tt.matches && m != nil {
			t.Errorf("expected no match for %q, got %v", tt.line, m)
			continue
		}
		if tt.matches {
			if m[1] != tt.wantN || m[2] != tt.wantM {
				t.Errorf("match = %v, want N=%s M=%s", m, tt.wantN, tt.wantM)
			}
		}
	}
}

func TestParseUintOrZero(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"150", 150},
		{"0", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseUintOrZero(tt.in); got != tt.want {
			t.Errorf("parseUintOrZero(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
