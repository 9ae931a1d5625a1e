package exporter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes caps a sanitized name. Most filesystems reject longer names.
const MaxNameBytes = 255

const illegalChars = `<>:"/\|?*`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// Sanitize makes a user-supplied name safe to use as a single path component.
// It replaces characters that are illegal on common filesystems with '_',
// drops control characters, trims leading and trailing spaces and dots,
// escapes reserved device names and caps the length. It may return "".
//
// Sanitize(Sanitize(x)) == Sanitize(x) for every x.
func Sanitize(name string) string {
	s := name
	for range 4 {
		next := sanitizeOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func sanitizeOnce(name string) string {
	s := norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(illegalChars, r):
			b.WriteByte('_')
		case r == utf8.RuneError, unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	s = truncate(b.String(), MaxNameBytes)
	s = strings.Trim(s, " .")
	if isReserved(s) {
		s = truncate("_"+s, MaxNameBytes)
	}
	return s
}

// isReserved reports whether name would address a device on Windows, with or
// without an extension.
func isReserved(name string) bool {
	base, _, _ := strings.Cut(name, ".")
	_, ok := reservedNames[strings.ToUpper(strings.TrimRight(base, " "))]
	return ok
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
