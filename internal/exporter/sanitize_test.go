package exporter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeIllegalCharacters(t *testing.T) {
	got := Sanitize("a/b:c*d")
	assert.NotEmpty(t, got)
	assert.False(t, strings.ContainsAny(got, illegalChars), "got %q", got)
	assert.Equal(t, "a_b_c_d", got)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "mapexport", "mapexport"},
		{"all illegal", `<>:"/\|?*`, "_________"},
		{"control characters", "map\x00ex\tport\n", "mapexport"},
		{"trim spaces and dots", "  .map. ", "map"},
		{"only dots", "...", ""},
		{"empty", "", ""},
		{"reserved", "CON", "_CON"},
		{"reserved with extension", "nul.txt", "_nul.txt"},
		{"reserved lookalike", "CONSOLE", "CONSOLE"},
		{"nfc", "café", "café"},
		{"invalid utf8", "ab\xffcd", "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeLength(t *testing.T) {
	long := strings.Repeat("é", 200) // 400 bytes
	got := Sanitize(long)
	assert.LessOrEqual(t, len(got), MaxNameBytes)
	assert.Equal(t, strings.Repeat("é", 127), got)
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"a/b:c*d",
		"  CON  ",
		"CON" + strings.Repeat(" ", 300) + "x",
		strings.Repeat("a", 254) + " .b",
		"LPT1" + strings.Repeat(".", 260),
		"_CON",
		"é́",
		". . .",
		"\x7fdel",
		strings.Repeat("ü", 300),
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
		assert.False(t, strings.ContainsAny(once, illegalChars))
		assert.LessOrEqual(t, len(once), MaxNameBytes)
	}
}

func FuzzSanitizeIdempotent(f *testing.F) {
	f.Add("a/b:c*d")
	f.Add("CON.txt")
	f.Add(" . ")
	f.Fuzz(func(t *testing.T, in string) {
		once := Sanitize(in)
		if again := Sanitize(once); again != once {
			t.Fatalf("Sanitize not idempotent: %q -> %q -> %q", in, once, again)
		}
	})
}
