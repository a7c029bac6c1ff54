// Package extract pulls phone numbers and email addresses out of free text.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	nonDigit     = regexp.MustCompile(`[^\d]`)
)

// Contacts extracts phone numbers and emails from text in order of first
// appearance. Phones are normalized; emails are returned exactly as written,
// without case folding. Duplicates are preserved; deduplication belongs to
// the store.
func Contacts(text string) (phones, emails []string) {
	for _, raw := range phonePattern.FindAllString(text, -1) {
		if normalized, ok := NormalizePhone(raw); ok {
			phones = append(phones, normalized)
		}
	}
	emails = emailPattern.FindAllString(text, -1)
	return phones, emails
}

// NormalizePhone strips a raw phone match down to digits and renders it as
// "(AAA) BBB-CCCC". Eleven digits are accepted only with a leading country
// code 1, which is dropped. Any other digit count is rejected outright:
// arbitrary digit runs (order numbers, IDs) must not pass as phones.
func NormalizePhone(raw string) (string, bool) {
	digits := nonDigit.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 10:
		return formatPhone(digits), true
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return formatPhone(digits[1:]), true
	default:
		return "", false
	}
}

func formatPhone(digits string) string {
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}
