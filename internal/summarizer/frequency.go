package summarizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"feedbackexplorer/internal/textutil"
)

// queryBoost is the extra weight of a token that also appears in the question.
const queryBoost = 1.0

// FrequencySummarizer builds an extractive summary of retrieved reviews by
// ranking their sentences on token frequency, biased towards the question.
type FrequencySummarizer struct {
	maxSentences int
}

// NewFrequencySummarizer creates a summarizer keeping at most maxSentences.
func NewFrequencySummarizer(maxSentences int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &FrequencySummarizer{maxSentences: maxSentences}
}

type sentence struct {
	text   string
	tokens []string
	order  int
}

// Summarize condenses reviews into a few representative sentences. It returns
// an empty string when there is nothing to summarize.
func (s *FrequencySummarizer) Summarize(query string, reviews []string) (string, error) {
	var sentences []sentence
	seen := make(map[string]struct{})
	for _, r := range reviews {
		for _, text := range textutil.Sentences(r) {
			key := strings.ToLower(text)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sentences = append(sentences, sentence{text: text, tokens: textutil.Tokens(text), order: len(sentences)})
		}
	}
	if len(sentences) == 0 {
		return "", nil
	}

	// Document frequency across sentences, normalized to [0,1].
	freq := map[string]float64{}
	for _, sent := range sentences {
		uniq := map[string]struct{}{}
		for _, tok := range sent.tokens {
			uniq[tok] = struct{}{}
		}
		for tok := range uniq {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	for k, v := range freq {
		freq[k] = v / maxF
	}
	queryTerms := map[string]struct{}{}
	for _, tok := range textutil.Tokens(query) {
		queryTerms[tok] = struct{}{}
	}

	scores := make([]float64, len(sentences))
	for i, sent := range sentences {
		score := 0.0
		for _, tok := range sent.tokens {
			score += freq[tok]
			if _, ok := queryTerms[tok]; ok {
				score += queryBoost
			}
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(sent.tokens)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = score
	}
	ranked := make([]sentence, len(sentences))
	copy(ranked, sentences)
	sort.SliceStable(ranked, func(i, j int) bool { return scores[ranked[i].order] > scores[ranked[j].order] })
	n := s.maxSentences
	if n > len(ranked) {
		n = len(ranked)
	}
	selected := ranked[:n]
	// Keep original order among selected
	sort.Slice(selected, func(i, j int) bool { return selected[i].order < selected[j].order })

	parts := make([]string, 0, n)
	for _, sent := range selected {
		parts = append(parts, terminate(sent.text))
	}
	return fmt.Sprintf("Across %d reviews: %s", len(reviews), strings.Join(parts, " ")), nil
}

func terminate(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}
