package usecase

import (
	"strings"
	"unicode"
)

const defaultSnippetSentences = 3

var priorityKeywords = []string{
	"cbt", "interpersonal", "therapy", "support", "screen", "epds",
	"sleep", "bond", "intrusive", "grounding", "coping", "psychosis",
}

// CompressSnippet keeps up to maxSentences sentences of fullText that share
// a word with the query or mention a priority keyword. With no match it
// falls back to the leading sentences. Non-empty input never yields an
// empty result.
func CompressSnippet(query, fullText string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = defaultSnippetSentences
	}
	sentences := splitSentences(fullText)
	queryTerms := toTokenSet(query)

	keep := make([]string, 0, maxSentences)
	for _, s := range sentences {
		if sentenceMatches(s, queryTerms) {
			keep = append(keep, strings.TrimSpace(s))
		}
		if len(keep) >= maxSentences {
			break
		}
	}

	var out string
	if len(keep) > 0 {
		out = strings.Join(keep, " ")
	} else {
		if len(sentences) > maxSentences {
			sentences = sentences[:maxSentences]
		}
		out = strings.Join(sentences, " ")
	}
	if out == "" {
		return fullText
	}
	return out
}

func sentenceMatches(sentence string, queryTerms map[string]struct{}) bool {
	for _, token := range tokenizeWords(sentence) {
		if _, ok := queryTerms[token]; ok {
			return true
		}
	}
	lowered := strings.ToLower(sentence)
	for _, kw := range priorityKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// splitSentences cuts text at every whitespace run that directly follows
// '.', '!' or '?'. The whitespace run is dropped.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	out := make([]string, 0, 8)
	start := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) || !isSentenceEnd(runes[i-1]) {
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		out = append(out, string(runes[start:i]))
		start = j
		i = j - 1
	}
	out = append(out, string(runes[start:]))
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
