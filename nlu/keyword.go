package nlu

import (
	"context"
	"strings"
)

// KeywordAnalyzer recognises command intents from fixed phrases. It extracts
// no actions or mentions; it exists so the conversation keeps moving when the
// model-backed analyzer is unavailable or returns garbage.
type KeywordAnalyzer struct {
	Phrases map[Intent][]string
}

var _ Analyzer = (*KeywordAnalyzer)(nil)

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{
		Phrases: map[Intent][]string{
			IntentConfirm:     {"yes", "confirm", "create", "proceed", "go ahead", "submit", "ok", "done"},
			IntentReject:      {"no", "reject", "don't"},
			IntentCancel:      {"cancel", "stop", "quit", "exit"},
			IntentShowOptions: {"show option", "give option", "list option", "what are the option"},
			IntentAddItem:     {"add another", "another item", "add item", "add more"},
			IntentStartOver:   {"start over", "restart", "start again", "new order"},
			IntentCreateOrder: {"create po", "create purchase order", "independent po", "purchase order"},
		},
	}
}

func (p *KeywordAnalyzer) Analyze(ctx context.Context, req *Request) (*Analysis, error) {
	normalized := strings.ToLower(strings.TrimSpace(req.Input))
	words := map[string]bool{}
	for _, w := range strings.Fields(normalized) {
		words[strings.Trim(w, ".,!?")] = true
	}

	analysis := &Analysis{}
	for intent, phrases := range p.Phrases {
		for _, phrase := range phrases {
			matched := false
			if strings.ContainsRune(phrase, ' ') {
				matched = strings.Contains(normalized, phrase)
			} else {
				matched = words[phrase]
			}
			if matched {
				analysis.Intents = append(analysis.Intents, intent)
				break
			}
		}
	}
	if len(analysis.Intents) == 0 {
		analysis.Intents = []Intent{IntentNone}
	}
	return analysis, nil
}
