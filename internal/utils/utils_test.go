package utils

import (
	"strings"
	"testing"
)

func TestRandomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := RandomCode(9)
		if len(code) != 9 {
			t.Fatalf("RandomCode(9) = %q; want 9 chars", code)
		}
		if strings.Trim(code, codeAlphabet) != "" {
			t.Fatalf("RandomCode(9) = %q; contains chars outside alphabet", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("too many collisions: %d distinct codes of 50", len(seen))
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"150", 150, true},
		{" 42 ", 42, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12.5", 0, false},
		{"-5", -5, true},
	}

	for _, tt := range tests {
		got, ok := ParseQuantity(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseQuantity(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
