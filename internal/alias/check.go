package alias

import "strings"

// Normalize folds case and trims whitespace. Word uniqueness and answer
// matching both compare normalized text.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckAnswer reports whether text names the word or one of its synonyms,
// ignoring case and surrounding whitespace.
func CheckAnswer(w Word, text string) bool {
	guess := Normalize(text)
	if guess == "" {
		return false
	}
	if guess == Normalize(w.Word) {
		return true
	}
	for _, s := range w.SimilarWords {
		if guess == Normalize(s) {
			return true
		}
	}
	return false
}

// CheckDescription reports whether text is an acceptable clue, i.e. it does
// not contain the word or any synonym.
func CheckDescription(w Word, text string) bool {
	desc := Normalize(text)
	for _, s := range append([]string{w.Word}, w.SimilarWords...) {
		if n := Normalize(s); n != "" && strings.Contains(desc, n) {
			return false
		}
	}
	return true
}
