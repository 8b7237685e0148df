// Package sentiment classifies query text into the three labels the
// aggregation engine counts. Plain lexicon word counting: whichever list
// matches more words wins, everything else is neutral.
package sentiment

import (
	"strings"

	"retailbot/internal/domain"
)

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "love": true,
	"amazing": true, "perfect": true, "wonderful": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "hate": true, "awful": true,
	"worst": true, "horrible": true, "disappointed": true,
}

// Analyze returns positive, negative or neutral for the given text.
func Analyze(text string) string {
	var positive, negative int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if positiveWords[word] {
			positive++
		}
		if negativeWords[word] {
			negative++
		}
	}

	switch {
	case positive > negative:
		return domain.SentimentPositive
	case negative > positive:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
