package persona

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "for": true, "from": true, "has": true, "have": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true, "our": true, "so": true,
	"that": true, "the": true, "this": true, "to": true, "we": true, "will": true,
	"with": true, "my": true, "your": true, "can": true, "very": true, "just": true,
}

// meaningfulTokens counts content words. Latin runs count once when they are at
// least two characters and not a stopword. Han runs have no spaces, so every two
// characters count as one token.
func meaningfulTokens(text string) int {
	count := 0
	var word []rune
	hanRun := 0

	flushWord := func() {
		if len(word) >= 2 && !stopwords[string(word)] {
			count++
		}
		word = word[:0]
	}
	flushHan := func() {
		count += (hanRun + 1) / 2
		hanRun = 0
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			hanRun++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return count
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return (unicode.IsLetter(r) || unicode.IsDigit(r)) && !unicode.Is(unicode.Han, r)
}

// containsKeyword reports whether lowered text contains kw. Han keywords match as
// substrings; Latin keywords must sit on word boundaries so "ai" does not match "paid".
// A trailing "s" is accepted.
func containsKeyword(lowered, kw string) bool {
	kw = strings.ToLower(kw)
	if kw == "" {
		return false
	}
	if hasHan(kw) {
		return strings.Contains(lowered, kw)
	}

	for offset := 0; offset < len(lowered); {
		i := strings.Index(lowered[offset:], kw)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(kw)

		before := start == 0 || !isWordRune(lastRune(lowered[:start]))
		if end < len(lowered) && lowered[end] == 's' {
			end++ // plural
		}
		after := end == len(lowered) || !isWordRune(firstRune(lowered[end:]))
		if before && after {
			return true
		}
		offset = start + 1
	}
	return false
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// countHits returns how many distinct keywords appear in lowered text.
func countHits(lowered string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if containsKeyword(lowered, kw) {
			hits++
		}
	}
	return hits
}
