package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"battery", "lasts", "not", "long", "2", "days"},
		Tokens("The battery lasts NOT long: 2 days."))
	assert.Equal(t, []string{"don't", "buy"}, Tokens("Don't buy it"))
	assert.Empty(t, Tokens("the and of"))
}

func TestSentences(t *testing.T) {
	assert.Equal(t,
		[]string{"Great sound!", "Battery died fast.", "Would buy again"},
		Sentences("Great sound! Battery died fast.\nWould buy again"))
	assert.Equal(t, []string{"no terminator"}, Sentences("  no terminator  "))
	assert.Empty(t, Sentences("   "))
}
