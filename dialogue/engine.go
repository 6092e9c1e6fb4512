// Package dialogue drives the conversation. The Engine is a state machine
// over order.ConversationState: each user turn is analyzed by the language
// oracle, mentions are resolved against the catalog, structured edits are
// applied to the record, and the next question (or the confirmation summary)
// is produced. The Engine holds no per-session state of its own.
package dialogue

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/rs/zerolog"

	"github.com/Amit-aeonx/po-agent/catalog"
	"github.com/Amit-aeonx/po-agent/nlu"
	"github.com/Amit-aeonx/po-agent/order"
	"github.com/Amit-aeonx/po-agent/wire"
)

type Engine struct {
	analyzer nlu.Analyzer
	client   catalog.Client
	schema   string
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Engine)

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the wall clock used for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(analyzer nlu.Analyzer, client catalog.Client, opts ...Option) *Engine {
	schema, err := order.Schema()
	if err != nil {
		schema = ""
	}
	e := &Engine{
		analyzer: analyzer,
		client:   client,
		schema:   schema,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Turn processes one user utterance and returns the assistant reply. The
// state is mutated in place; the caller owns persistence.
func (e *Engine) Turn(ctx context.Context, s *order.ConversationState, input string) (string, error) {
	input = strings.TrimSpace(input)
	s.AddTurn(order.SpeakerUser, input)
	before, _ := sonic.Marshal(s.Order)

	analysis, err := e.analyze(ctx, s, input)
	if err != nil {
		e.log.Warn().Err(err).Msg("turn analysis failed")
		analysis = &nlu.Analysis{}
	}

	var reply string
	switch s.Step {
	case order.StepGreeting:
		reply, err = e.greet(ctx, s, analysis)
	case order.StepPOIntent:
		reply, err = e.chooseType(ctx, s, input, analysis)
	case order.StepCollecting:
		reply, err = e.collect(ctx, s, input, analysis)
	case order.StepConfirm:
		reply, err = e.confirm(ctx, s, analysis)
	case order.StepDone:
		reply, err = e.finished(s, analysis)
	default:
		s.Reset()
		reply = greetingText
	}
	if err != nil {
		return "", err
	}

	e.logRecordDiff(before, s)
	s.LastQuestion = reply
	s.AddTurn(order.SpeakerAssistant, reply)
	return reply, nil
}

func (e *Engine) analyze(ctx context.Context, s *order.ConversationState, input string) (*nlu.Analysis, error) {
	snapshot, err := s.Order.Doc()
	if err != nil {
		return nil, err
	}
	return e.analyzer.Analyze(ctx, &nlu.Request{
		Input:        input,
		Step:         string(s.Step),
		LastQuestion: s.LastQuestion,
		Snapshot:     snapshot,
		Schema:       e.schema,
		History:      s.History,
	})
}

func (e *Engine) greet(ctx context.Context, s *order.ConversationState, analysis *nlu.Analysis) (string, error) {
	if analysis.Has(nlu.IntentCreateOrder) {
		s.Step = order.StepPOIntent
		return poTypePrompt(), nil
	}
	return greetingText, nil
}

func (e *Engine) chooseType(ctx context.Context, s *order.ConversationState, input string, analysis *nlu.Analysis) (string, error) {
	if analysis.Has(nlu.IntentCancel) {
		s.Reset()
		return cancelledText, nil
	}
	code := matchPOType(input, analysis)
	if code == "" {
		// Ask again once for a bare unrecognized answer; a message that
		// already carries order details just gets the default subtype.
		if len(analysis.Actions) == 0 && len(analysis.Mentions) == 0 && s.LastQuestion != poTypeRetryPrompt {
			return poTypeRetryPrompt, nil
		}
		code = defaultPOType
	}
	s.Order.POType = code
	s.Step = order.StepCollecting
	// The subtype message may already carry order details.
	return e.collect(ctx, s, input, analysis)
}

func (e *Engine) finished(s *order.ConversationState, analysis *nlu.Analysis) (string, error) {
	if analysis.Has(nlu.IntentStartOver) || analysis.Has(nlu.IntentCreateOrder) {
		s.Reset()
		s.Step = order.StepPOIntent
		return poTypePrompt(), nil
	}
	return doneText, nil
}

// logRecordDiff emits the merge diff of the record for this turn, so a debug
// trace reads as a sequence of small patches instead of full snapshots.
func (e *Engine) logRecordDiff(before []byte, s *order.ConversationState) {
	if e.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	after, err := sonic.Marshal(s.Order)
	if err != nil {
		return
	}
	diff, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil || string(diff) == "{}" {
		return
	}
	e.log.Debug().Str("step", string(s.Step)).RawJSON("diff", diff).Msg("record changed")
}

func (e *Engine) submit(ctx context.Context, s *order.ConversationState) (string, error) {
	form, err := wire.Build(s.Order, e.now())
	if err != nil {
		return "", err
	}
	e.log.Info().Strs("fields", wire.Keys(form)).Msg("submitting purchase order")
	body, err := e.client.SubmitOrder(ctx, form)
	if err != nil {
		e.log.Error().Err(err).Msg("purchase order submission failed")
		return "I could not reach the purchase order service. Please try again.", nil
	}
	result := wire.Interpret(body)
	if !result.OK {
		return submissionFailedText(result.Message), nil
	}
	s.Step = order.StepDone
	return submittedText(result.PONumber), nil
}
