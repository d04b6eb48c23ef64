package textutil

import (
	"regexp"
	"strings"
)

var sentenceRe = regexp.MustCompile(`[.!?]+`)

// FleschReadingEase computes the Flesch reading ease score for the text.
// Higher is easier; typical prose lands between 0 and 100, though the
// formula is unbounded. Empty text scores zero.
func FleschReadingEase(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := countSentences(text)
	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}

	wordCount := float64(len(words))

	return 206.835 - 1.015*(wordCount/float64(sentences)) - 84.6*(float64(syllables)/wordCount)
}

// countSentences counts terminal punctuation runs, treating the whole
// text as one sentence when none are present.
func countSentences(text string) int {
	count := len(sentenceRe.FindAllString(text, -1))
	if count == 0 {
		return 1
	}
	return count
}

// countSyllables estimates syllables by counting vowel groups, with the
// usual silent-e adjustment. Every word has at least one syllable.
func countSyllables(word string) int {
	word = strings.ToLower(word)

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}

	if count < 1 {
		count = 1
	}

	return count
}
