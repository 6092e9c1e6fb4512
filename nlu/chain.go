package nlu

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// chain runs one forced tool call against the chat model and decodes the tool
// arguments into TOutput.
type chain[TOutput any] struct {
	chatModel model.ToolCallingChatModel
	toolInfo  *schema.ToolInfo
}

func newChain[TOutput any](chatModel model.ToolCallingChatModel, toolName, toolDesc string) (*chain[TOutput], error) {
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &chain[TOutput]{
		chatModel: chatModel,
		toolInfo:  toolInfo,
	}, nil
}

func (c *chain[TOutput]) invoke(ctx context.Context, messages []*schema.Message) (*TOutput, error) {
	response, err := c.chatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{c.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, c.toolInfo.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	if len(response.ToolCalls) == 0 {
		return nil, fmt.Errorf("no ToolCall found in model response: %s", response.Content)
	}

	var result TOutput
	if err := sonic.UnmarshalString(response.ToolCalls[0].Function.Arguments, &result); err != nil {
		return nil, fmt.Errorf("parse ToolCall arguments failed: %w", err)
	}
	return &result, nil
}
