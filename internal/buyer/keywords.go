package buyer

import "strings"

// topicKeywords gate free-text candidates to the scrap-battery trade.
var topicKeywords = []string{
	"battery", "batteries", "scrap", "lead", "acid", "recycl",
	"automotive", "core", "buyer", "purchase", "dealer", "yard", "metal",
}

// MatchesTopic reports whether s mentions at least one topical keyword.
// Matching is case-insensitive substring containment, so "recycl" covers
// "recycler", "recycling" and "recyclers".
func MatchesTopic(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
