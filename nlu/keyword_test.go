package nlu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeText(t *testing.T, text string) *Analysis {
	t.Helper()
	analysis, err := NewKeywordAnalyzer().Analyze(context.Background(), &Request{Input: text})
	require.NoError(t, err)
	return analysis
}

func TestKeywordIntents(t *testing.T) {
	t.Parallel()

	assert.True(t, analyzeText(t, "yes, go ahead").Has(IntentConfirm))
	assert.True(t, analyzeText(t, "Cancel").Has(IntentCancel))
	assert.True(t, analyzeText(t, "I want to create PO").Has(IntentCreateOrder))
	assert.True(t, analyzeText(t, "Independent PO please").Has(IntentCreateOrder))
	assert.True(t, analyzeText(t, "add another item").Has(IntentAddItem))
	assert.True(t, analyzeText(t, "show options").Has(IntentShowOptions))
	assert.True(t, analyzeText(t, "let's start over").Has(IntentStartOver))
}

func TestKeywordExactWordMatching(t *testing.T) {
	t.Parallel()

	// "no" must match as a word, not as a substring of "note".
	assert.True(t, analyzeText(t, "no").Has(IntentReject))
	assert.False(t, analyzeText(t, "note the remarks").Has(IntentReject))
}

func TestKeywordNoMatchIsIntentNone(t *testing.T) {
	t.Parallel()

	analysis := analyzeText(t, "the supplier is Smartsaa")
	assert.Equal(t, []Intent{IntentNone}, analysis.Intents)
	assert.Empty(t, analysis.Actions)
	assert.Empty(t, analysis.Mentions)
}

type erroringAnalyzer struct{ err error }

func (e *erroringAnalyzer) Analyze(ctx context.Context, req *Request) (*Analysis, error) {
	return nil, e.err
}

func TestFallbackAnalyzerTriesInOrder(t *testing.T) {
	t.Parallel()

	fallback := NewFallbackAnalyzer(
		&erroringAnalyzer{err: errors.New("model down")},
		NewKeywordAnalyzer(),
	)
	analysis, err := fallback.Analyze(context.Background(), &Request{Input: "confirm"})
	require.NoError(t, err)
	assert.True(t, analysis.Has(IntentConfirm))
}

func TestFallbackAnalyzerAllFail(t *testing.T) {
	t.Parallel()

	fallback := NewFallbackAnalyzer(&erroringAnalyzer{err: errors.New("boom")})
	_, err := fallback.Analyze(context.Background(), &Request{Input: "x"})
	assert.Error(t, err)
}
