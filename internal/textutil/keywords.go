package textutil

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

// stopWords is the built-in English stop-word filter for keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "up": {},
	"about": {}, "into": {}, "through": {}, "during": {}, "before": {},
	"after": {}, "above": {}, "below": {}, "between": {}, "among": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "i": {}, "me": {},
	"my": {}, "myself": {}, "we": {}, "our": {}, "ours": {}, "ourselves": {},
	"you": {}, "your": {}, "yours": {}, "yourself": {}, "yourselves": {},
	"he": {}, "him": {}, "his": {}, "himself": {}, "she": {}, "her": {},
	"hers": {}, "herself": {}, "it": {}, "its": {}, "itself": {}, "they": {},
	"them": {}, "their": {}, "theirs": {}, "themselves": {}, "what": {},
	"which": {}, "who": {}, "whom": {}, "am": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {},
	"has": {}, "had": {}, "having": {}, "do": {}, "does": {}, "did": {},
	"doing": {}, "a": {}, "an": {}, "will": {}, "would": {}, "should": {},
	"could": {}, "can": {}, "may": {}, "might": {}, "must": {}, "shall": {},
}

// ExtractKeywords returns the most frequent non-stop-words of the text,
// lowercased, longest-frequency-first, at most maxKeywords. Words shorter
// than four characters are ignored.
func ExtractKeywords(text string, maxKeywords int) []string {
	if text == "" || maxKeywords <= 0 {
		return nil
	}

	freq := make(map[string]int)
	for _, word := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		freq[word]++
	}

	if len(freq) == 0 {
		return nil
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}

	// Highest frequency first; ties alphabetical for determinism.
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}

	return words
}
