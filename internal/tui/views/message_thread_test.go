package views

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateKeepsRunesIntact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short ascii", "hello", 10, "hello"},
		{"long ascii", "hello world", 5, "hello…"},
		{"exact length", "hello", 5, "hello"},
		{"multibyte cut", "olá médico", 4, "olá …"},
		{"cjk", "医者からの返信", 3, "医者か…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}
