package nlu

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// Prompt text lives in prompts.yaml so it can be tuned without touching the
// engine logic.
//
//go:embed prompts.yaml
var promptsRaw []byte

type promptConfig struct {
	Analyze struct {
		ToolName        string `yaml:"tool_name"`
		ToolDescription string `yaml:"tool_description"`
		System          string `yaml:"system"`
	} `yaml:"analyze"`
}

func loadPrompts() (*promptConfig, error) {
	var cfg promptConfig
	if err := yaml.Unmarshal(promptsRaw, &cfg); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	return &cfg, nil
}

// FormatRequest renders the turn context the oracle conditions on.
func FormatRequest(req *Request) (string, error) {
	sections := []string{
		fmt.Sprintf("# Current date:\n%s", time.Now().Format("2006-01-02")),
		fmt.Sprintf("# Conversation step:\n%s", req.Step),
	}
	if req.LastQuestion != "" {
		sections = append(sections, fmt.Sprintf("# Last question asked:\n%s", req.LastQuestion))
	}
	if req.Snapshot != nil {
		snapshot, err := sonic.Marshal(req.Snapshot)
		if err != nil {
			return "", fmt.Errorf("marshal record snapshot: %w", err)
		}
		sections = append(sections, fmt.Sprintf("# Current record:\n```json\n%s\n```", string(snapshot)))
	}
	if req.Schema != "" {
		sections = append(sections, fmt.Sprintf("# Record schema:\n```json\n%s\n```", req.Schema))
	}
	if len(req.History) > 0 {
		var sb strings.Builder
		start := len(req.History) - 6
		if start < 0 {
			start = 0
		}
		for _, turn := range req.History[start:] {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Speaker, turn.Text)
		}
		sections = append(sections, fmt.Sprintf("# Recent turns:\n%s", strings.TrimRight(sb.String(), "\n")))
	}
	sections = append(sections, fmt.Sprintf("# User message:\n%s", req.Input))
	return strings.Join(sections, "\n\n"), nil
}
