package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	out, err := NewFrequencySummarizer(3).Summarize("battery", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarizePrefersQueryTerms(t *testing.T) {
	reviews := []string{
		"Shipping took two weeks. The battery lasts all day.",
		"Battery drains overnight! Nice colors",
		"Great color options.",
	}
	out, err := NewFrequencySummarizer(2).Summarize("how is the battery", reviews)
	require.NoError(t, err)
	assert.Equal(t, "Across 3 reviews: The battery lasts all day. Battery drains overnight!", out)
}

func TestSummarizeDeduplicatesSentences(t *testing.T) {
	out, err := NewFrequencySummarizer(5).Summarize("", []string{"Works great.", "works great."})
	require.NoError(t, err)
	assert.Equal(t, "Across 2 reviews: Works great.", out)
}
