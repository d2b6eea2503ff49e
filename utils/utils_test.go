package utils

import "testing"

func TestGenerateRandomDigitString(t *testing.T) {
	s := GenerateRandomDigitString(10)
	if len(s) != 10 {
		t.Fatalf("length = %d, want 10", len(s))
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit %q in %q", r, s)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Meeting Room A", "meeting-room-a"},
		{"  Lab #3 / Bench  ", "lab-3-bench"},
		{"already-a-slug", "already-a-slug"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
