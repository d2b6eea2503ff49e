package utils

import (
	rndm "math/rand"
	"regexp"
	"slices"
	"strings"
)

// --- Random String and ID Generators ---

var digitRunes = []rune("0123456789")

// GenerateRandomDigitString creates a random numeric string of length n.
func GenerateRandomDigitString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = digitRunes[rndm.Intn(len(digitRunes))]
	}
	return string(b)
}

// --- Slice Helpers ---

func Contains(slice []string, value string) bool {
	return slices.Contains(slice, value)
}

// --- Slugs ---

var slugUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

// Slugify lowercases, replaces runs of unsafe characters with a single
// dash, and trims dashes from the ends.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugUnsafe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
