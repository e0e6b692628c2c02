// Package textutil holds the tokenizer and sentence splitter shared by the
// local backend's embedder and summarizer.
package textutil

import (
	"regexp"
	"strings"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?]+|[^.!?\n]+$)`)
)

// stopwords are dropped before weighting. Negations are kept on purpose so
// "not good" and "good" do not collapse into the same vector.
var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
	"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
	"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
	"into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
	"own", "same", "too", "very", "can", "will", "just", "should", "now", "i", "me", "my", "we", "our",
	"you", "your", "he", "she", "they", "them", "their", "what", "which", "who", "do", "does", "did",
	"have", "has", "had", "would", "could", "also", "there", "here", "all", "any", "some", "one",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsStopword reports whether the lower-cased token carries no retrieval weight.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// Tokens returns the lower-cased word tokens of text with stopwords removed.
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sentences splits text on terminal punctuation and line breaks. Text without
// any terminator comes back as a single sentence.
func Sentences(text string) []string {
	found := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(found))
	for _, s := range found {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
