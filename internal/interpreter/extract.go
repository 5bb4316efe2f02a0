package interpreter

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordAmounts is searched in order, longer phrases first, so "two hundred"
// wins over "hundred" and "two".
var wordAmounts = []struct {
	word  string
	value int64
}{
	{"five thousand", 5000},
	{"two thousand", 2000},
	{"one thousand", 1000},
	{"five hundred", 500},
	{"three hundred", 300},
	{"two hundred", 200},
	{"one hundred", 100},
	{"thousand", 1000},
	{"hundred", 100},
	{"fifty", 50},
	{"ten", 10},
	{"twenty", 20},
	{"thirty", 30},
	{"forty", 40},
	{"sixty", 60},
	{"seventy", 70},
	{"eighty", 80},
	{"ninety", 90},
	{"one", 1},
	{"two", 2},
	{"three", 3},
	{"four", 4},
	{"five", 5},
	{"six", 6},
	{"seven", 7},
	{"eight", 8},
	{"nine", 9},
}

var wordAmountPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(wordAmounts))
	for i, w := range wordAmounts {
		out[i] = regexp.MustCompile(`\b` + w.word + `\b`)
	}
	return out
}()

var numericAmount = regexp.MustCompile(`\$?(\d+(?:\.\d{1,2})?)(?:\s*(?:dollars?|bucks?))?`)

// amountToken matches a spoken amount inside a longer phrase, unit included.
var amountToken = func() string {
	words := make([]string, len(wordAmounts))
	for i, w := range wordAmounts {
		words[i] = strings.ReplaceAll(w.word, " ", `\s+`)
	}
	return `(?:\$?\d+(?:\.\d{1,2})?|(?:` + strings.Join(words, "|") + `))(?:\s*(?:dollars?|bucks?))?`
}()

const (
	oneWord  = `([a-z]+)`
	twoWords = `([a-z]+(?:\s+[a-z]+)?)`
)

// contactPatterns are tried in order; the first match names the contact.
var contactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:request|ask for)\s+` + amountToken + `\s+from\s+` + oneWord),
	regexp.MustCompile(`\b(?:send|give|pay)\s+(?:money\s+)?(?:from\s+me\s+)?to\s+` + oneWord),
	regexp.MustCompile(`\b(?:split\s+with|request\s+from)\s+` + oneWord),
	regexp.MustCompile(`\b(?:send|give|pay)\s+` + amountToken + `\s+(?:to\s+)?` + oneWord),
	regexp.MustCompile(`\b(?:with|to|from)\s+` + twoWords),
	regexp.MustCompile(twoWords + `\s+(?:here|speaking|balance)\b`),
}

var multiContactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsplit\s+` + amountToken + `\s+between\s+(.+)`),
	regexp.MustCompile(`\bsplit\s+(?:` + amountToken + `\s+)?with\s+(.+)`),
}

var listSeparator = regexp.MustCompile(`\s*,\s*(?:and\s+)?|\s+and\s+`)

// ExtractAmount finds the first spoken amount in text. Number words are
// checked before digits.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	text = normalize(text)
	for i, re := range wordAmountPatterns {
		if re.MatchString(text) {
			return decimal.NewFromInt(wordAmounts[i].value), true
		}
	}
	if m := numericAmount.FindStringSubmatch(text); m != nil {
		amount, err := decimal.NewFromString(m[1])
		if err == nil {
			return amount, true
		}
	}
	return decimal.Zero, false
}

// ExtractContactName returns the single counterparty named in text,
// title-cased.
func ExtractContactName(text string) (string, bool) {
	text = normalize(text)
	for _, re := range contactPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name := strings.TrimSpace(m[1]); name != "" {
			return titleCase(name), true
		}
	}
	return "", false
}

// ExtractContactNames returns every name listed after "split ... between" or
// "split ... with". "Me" is kept so callers can count the speaker.
func ExtractContactNames(text string) []string {
	text = normalize(text)
	for _, re := range multiContactPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var names []string
		for _, part := range listSeparator.Split(strings.TrimSpace(m[1]), -1) {
			part = strings.Trim(part, " .!?")
			if part == "" {
				continue
			}
			names = append(names, titleCase(part))
		}
		return names
	}
	return nil
}

// IsSpeaker reports whether a listed name refers to the person talking.
func IsSpeaker(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), "me")
}

// titleCase builds a fresh Caser per call; Casers are stateful.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
