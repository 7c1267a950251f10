package anthropic

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumewise/refine-cli/internal/resilience"
)

func TestIsMalformed(t *testing.T) {
	err := &MalformedResponseError{Reason: "no text content in response"}
	assert.True(t, IsMalformed(err))
	assert.True(t, IsMalformed(fmt.Errorf("complete: %w", err)))
	assert.False(t, IsMalformed(errors.New("network down")))
	assert.False(t, IsMalformed(nil))
}

func TestMalformedResponseError_Message(t *testing.T) {
	err := &MalformedResponseError{Reason: "empty content"}
	assert.Equal(t, "anthropic: malformed response: empty content", err.Error())
}

func TestEstimateCost_KnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := u.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 4.80, cost, 0.001)
}

func TestEstimateCost_CacheTokens(t *testing.T) {
	u := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}
	// Cache writes bill at 1.25x input, reads at 0.1x input.
	cost := u.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 0.80*1.25+0.80*0.1, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 5000, OutputTokens: 5000}
	assert.Zero(t, u.EstimateCost("some-future-model"))
}

func TestClassifyError_PassesThroughRegularErrors(t *testing.T) {
	plain := errors.New("invalid request")
	got := classifyError(plain)
	require.Same(t, plain, got)
	assert.False(t, resilience.IsTransient(got))
}
