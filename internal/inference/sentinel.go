package inference

import "strings"

// IsNoExercise reports whether text is the model's "no exercise" answer:
// the marker, compared case-insensitively, appears within the first window
// runes of the trimmed text. A real solution that names the marker early is
// misread as a non-match; that is accepted.
func IsNoExercise(text, marker string, window int) bool {
	if marker == "" || window <= 0 {
		return false
	}
	head := []rune(strings.TrimSpace(text))
	if len(head) > window {
		head = head[:window]
	}
	return strings.Contains(strings.ToUpper(string(head)), strings.ToUpper(marker))
}
