package naming

import (
	"errors"
	"strings"
	"testing"
)

func TestRandomStringLengthAndAlphabet(t *testing.T) {
	for _, n := range []int{1, 8, 64, 300} {
		s, err := RandomString(n)
		if err != nil {
			t.Fatalf("RandomString(%d): %v", n, err)
		}
		if len(s) != n {
			t.Errorf("RandomString(%d) length = %d", n, len(s))
		}
		for _, r := range s {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("RandomString(%d) produced %q outside the alphabet", n, r)
			}
		}
	}
}

func TestRandomStringZeroAndNegative(t *testing.T) {
	s, err := RandomString(0)
	if err != nil || s != "" {
		t.Errorf("RandomString(0) = %q, %v", s, err)
	}
	if _, err := RandomString(-1); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("RandomString(-1) err = %v, want ErrInvalidLength", err)
	}
}

func TestRandomStringIndependent(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := RandomString(12)
		if err != nil {
			t.Fatal(err)
		}
		if seen[s] {
			t.Fatalf("duplicate token %q after %d draws", s, i)
		}
		seen[s] = true
	}
}

func TestLink(t *testing.T) {
	tests := []struct {
		base, name, want string
	}{
		{"example.com/shots", "ab12.png", "http://example.com/shots/ab12.png"},
		{"example.com/shots/", "ab12.png", "http://example.com/shots/ab12.png"},
		{"http://example.com/shots", "ab12.png", "http://example.com/shots/ab12.png"},
		{"example.com/my shots", "a b.png", "http://example.com/my%20shots/a%20b.png"},
		{"https://cdn.example.com", "x.gif", "https://cdn.example.com/x.gif"},
	}
	for _, tt := range tests {
		if got := Link(tt.base, tt.name); got != tt.want {
			t.Errorf("Link(%q, %q) = %q, want %q", tt.base, tt.name, got, tt.want)
		}
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		folder, name, want string
	}{
		{"public_html/shots", "a.png", "public_html/shots/a.png"},
		{"public_html/shots/", "/a.png", "public_html/shots/a.png"},
		{`shots\`, `\a.png`, "shots/a.png"},
		{"", "a.png", "a.png"},
		{"/", "a.png", "a.png"},
	}
	for _, tt := range tests {
		if got := Combine(tt.folder, tt.name); got != tt.want {
			t.Errorf("Combine(%q, %q) = %q, want %q", tt.folder, tt.name, got, tt.want)
		}
	}
}

func TestExtensions(t *testing.T) {
	if Extension("jpeg") != ".jpg" || Extension("gif") != ".gif" || Extension("") != ".png" {
		t.Error("unexpected configured extension mapping")
	}
	if ExtensionFor("jpeg", "png") != ".jpeg" {
		t.Error("expected decoded jpeg to map to .jpeg")
	}
	if ExtensionFor("bmp", "gif") != ".gif" {
		t.Error("expected bmp to fall back to the configured format")
	}
}
