package dialogue

import (
	"context"

	"github.com/Amit-aeonx/po-agent/nlu"
	"github.com/Amit-aeonx/po-agent/order"
)

func (e *Engine) confirm(ctx context.Context, s *order.ConversationState, analysis *nlu.Analysis) (string, error) {
	switch {
	case analysis.Has(nlu.IntentCancel):
		s.Reset()
		return cancelledText, nil
	case analysis.Has(nlu.IntentAddItem):
		s.Step = order.StepCollecting
		s.PendingItem = &order.LineItem{}
		return "Sure. Which material or service do you want to add?", nil
	case len(analysis.Actions) > 0 || len(analysis.Mentions) > 0:
		// Edits during review loop back through collecting, which re-renders
		// the summary once everything still holds together.
		s.Step = order.StepCollecting
		return e.collect(ctx, s, "", analysis)
	case analysis.Has(nlu.IntentConfirm):
		return e.submit(ctx, s)
	case analysis.Has(nlu.IntentReject):
		s.Step = order.StepCollecting
		return "Okay, we can keep editing. What would you like to change?", nil
	}
	return order.Summary(s.Order) + "\n" + confirmPrompt, nil
}
