package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "trimmed", in: "  report.pdf ", want: "report.pdf"},
		{name: "slashes flattened", in: "a/b\\c.txt", want: "a_b_c.txt"},
		{name: "control chars dropped", in: "re\x00port\n.pdf", want: "report.pdf"},
		{name: "traversal", in: "../etc/passwd", wantErr: true},
		{name: "embedded traversal", in: "a/../../b", wantErr: true},
		{name: "windows traversal", in: "..\\secret.txt", wantErr: true},
		{name: "current dir element", in: "./a.txt", wantErr: true},
		{name: "double dot inside name", in: "report..final.pdf", want: "report..final.pdf"},
		{name: "leading dots kept", in: "..hidden", want: "..hidden"},
		{name: "empty", in: "   ", wantErr: true},
		{name: "dot only", in: ".", wantErr: true},
		{name: "too long", in: strings.Repeat("a", 256), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileName) {
					t.Fatalf("SanitizeFileName(%q) err = %v, want ErrInvalidFileName", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
