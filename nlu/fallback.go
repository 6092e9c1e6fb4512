package nlu

import (
	"context"
	"fmt"
)

// FallbackAnalyzer tries each analyzer in order and returns the first result.
type FallbackAnalyzer struct {
	analyzers []Analyzer
}

var _ Analyzer = (*FallbackAnalyzer)(nil)

func NewFallbackAnalyzer(analyzers ...Analyzer) *FallbackAnalyzer {
	return &FallbackAnalyzer{analyzers: analyzers}
}

func (f *FallbackAnalyzer) Analyze(ctx context.Context, req *Request) (*Analysis, error) {
	var lastErr error
	for _, analyzer := range f.analyzers {
		analysis, err := analyzer.Analyze(ctx, req)
		if err == nil {
			return analysis, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all analyzers failed: %w", lastErr)
}
