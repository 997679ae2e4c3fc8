package cursor

import "unicode/utf8"

// SplitRunes splits s after its first n characters. Splits always land on
// rune boundaries. n <= 0 yields ("", s); n beyond the end yields (s, "").
func SplitRunes(s string, n int) (head, tail string) {
	if n <= 0 {
		return "", s
	}
	if n >= len(s) {
		// Fewer bytes than n means fewer runes than n as well.
		return s, ""
	}

	offset := 0
	for i := 0; i < n && offset < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return s[:offset], s[offset:]
}

// RuneLen reports the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
