package stepsheet

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	monthName      = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	nameAndCountry = regexp.MustCompile(`^(.+?)\s*\((.*)\)$`)
)

// ParseChoreographers splits a choreographer blob into credited
// choreographers and an optional release date.
//
// Each line may end in " - <date>" where the date names a month; the last
// such date wins. Entries are separated by "&", "," or the word "and"
// outside parentheses. A bare "(Country)" fills in the country of the
// preceding entry if it has none and is dropped otherwise.
func ParseChoreographers(raw string) ([]Choreographer, string) {
	entries := []Choreographer{}
	releaseDate := ""

	for _, part := range strings.Split(raw, "\n") {
		if i := strings.LastIndex(part, " - "); i >= 0 {
			if tail := cleanText(part[i+3:]); monthName.MatchString(tail) {
				releaseDate = tail
				part = part[:i]
			}
		}

		for _, token := range splitCredits(part) {
			token = cleanText(token)
			if token == "" {
				continue
			}

			if strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")") {
				country := cleanText(token[1 : len(token)-1])
				if n := len(entries); n > 0 && entries[n-1].Country == "" {
					entries[n-1].Country = country
				}
				continue
			}

			if m := nameAndCountry.FindStringSubmatch(token); m != nil {
				entries = append(entries, Choreographer{Name: cleanText(m[1]), Country: cleanText(m[2])})
				continue
			}
			entries = append(entries, Choreographer{Name: token})
		}
	}

	return entries, releaseDate
}

// splitCredits splits s on "&", "," and the standalone word "and" (any
// case), ignoring separators inside parentheses.
func splitCredits(s string) []string {
	var (
		tokens []string
		depth  int
		start  int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case r == '&' || r == ',':
			tokens = append(tokens, string(runes[start:i]))
			start = i + 1
		case isAndWord(runes, i):
			tokens = append(tokens, string(runes[start:i]))
			start = i + 3
			i += 2
		}
	}
	return append(tokens, string(runes[start:]))
}

// isAndWord reports whether runes[i:] starts with "and" that is not part
// of a longer word.
func isAndWord(runes []rune, i int) bool {
	if i+3 > len(runes) || !strings.EqualFold(string(runes[i:i+3]), "and") {
		return false
	}
	if i > 0 && isWordRune(runes[i-1]) {
		return false
	}
	if i+3 < len(runes) && isWordRune(runes[i+3]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
