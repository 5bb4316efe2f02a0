package identity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackName is what ExtractName returns when nothing name-like was said.
const FallbackName = "User"

// namePatterns are tried in order; the first capture that is not a filler
// word wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:my name is|i am|this is|call me|i'm)\s+([a-z]+)`),
	regexp.MustCompile(`([a-z]+)\s+(?:here|speaking)`),
	regexp.MustCompile(`(?:hello|hi|hey),\s*(?:i'm|this is|i am)\s+([a-z]+)`),
	regexp.MustCompile(`([a-z]+\s+[a-z]+)`),
	regexp.MustCompile(`^([a-z]+)\s+(?:is|here|speaking|saying)`),
	regexp.MustCompile(`(?:it's|its)\s+(?:me,?\s+)?([a-z]+)`),
	regexp.MustCompile(`([a-z]+)\s+(?:reporting|checking in|signing in)`),
	regexp.MustCompile(`(?:access granted|welcome)\s+([a-z]+)`),
}

var fillerWords = map[string]bool{
	"password": true, "login": true, "access": true, "account": true,
	"hello": true, "hi": true, "hey": true, "please": true, "thank": true, "you": true,
}

// ExtractName pulls a display name out of a spoken introduction such as
// "my name is john" or "sarah here".
func ExtractName(message string) string {
	lower := strings.ToLower(message)
	caser := cases.Title(language.English)

	for _, re := range namePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		name := caser.String(m[1])
		if !fillerWords[strings.ToLower(name)] && len(name) > 1 {
			return name
		}
	}

	for _, w := range strings.Fields(message) {
		if utf8.RuneCountInString(w) > 1 && isLetters(w) && !fillerWords[strings.ToLower(w)] {
			return caser.String(w)
		}
	}
	return FallbackName
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
