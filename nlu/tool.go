package nlu

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/Amit-aeonx/po-agent/pathexpr"
)

type analysisPayload struct {
	Intents  []Intent          `json:"intents,omitempty" jsonschema:"description=Command intents found in the message"`
	Actions  []pathexpr.Action `json:"actions,omitempty" jsonschema:"description=Direct edits to the record"`
	Mentions []Mention         `json:"mentions,omitempty" jsonschema:"description=Names that need catalog lookup"`
}

var knownIntents = map[Intent]bool{
	IntentNone:        true,
	IntentConfirm:     true,
	IntentReject:      true,
	IntentCancel:      true,
	IntentShowOptions: true,
	IntentAddItem:     true,
	IntentStartOver:   true,
	IntentCreateOrder: true,
}

// ToolAnalyzer asks the chat model to analyse the turn through a forced tool
// call and returns the decoded arguments.
type ToolAnalyzer struct {
	chain  *chain[analysisPayload]
	system string
}

var _ Analyzer = (*ToolAnalyzer)(nil)

func NewToolAnalyzer(chatModel model.ToolCallingChatModel) (*ToolAnalyzer, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	c, err := newChain[analysisPayload](chatModel, prompts.Analyze.ToolName, prompts.Analyze.ToolDescription)
	if err != nil {
		return nil, fmt.Errorf("create analysis chain: %w", err)
	}
	return &ToolAnalyzer{chain: c, system: prompts.Analyze.System}, nil
}

func (a *ToolAnalyzer) Analyze(ctx context.Context, req *Request) (*Analysis, error) {
	userPrompt, err := FormatRequest(req)
	if err != nil {
		return nil, err
	}
	payload, err := a.chain.invoke(ctx, []*schema.Message{
		schema.SystemMessage(a.system),
		schema.UserMessage(userPrompt),
	})
	if err != nil {
		return nil, fmt.Errorf("analyze turn: %w", err)
	}
	return sanitize(payload), nil
}

// sanitize drops anything the model hallucinated outside the contract instead
// of letting it reach the engine.
func sanitize(payload *analysisPayload) *Analysis {
	analysis := &Analysis{}
	for _, intent := range payload.Intents {
		if knownIntents[intent] {
			analysis.Intents = append(analysis.Intents, intent)
		} else {
			log.Debug().Str("intent", string(intent)).Msg("dropping unknown intent")
		}
	}
	for _, action := range payload.Actions {
		if action.Path == "" {
			continue
		}
		if action.Op != pathexpr.OpSet && action.Op != pathexpr.OpAdd {
			action.Op = pathexpr.OpSet
		}
		analysis.Actions = append(analysis.Actions, action)
	}
	for _, mention := range payload.Mentions {
		if mention.Category == "" || mention.Text == "" {
			continue
		}
		analysis.Mentions = append(analysis.Mentions, mention)
	}
	if len(analysis.Intents) == 0 {
		analysis.Intents = []Intent{IntentNone}
	}
	return analysis
}
