package session

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/Amit-aeonx/po-agent/order"
)

type sessionIDContext struct{}

const defaultSessionID = "default"

// WithSessionID routes subsequent store operations to the given session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContext{}, id)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContext{}).(string)
	return id, ok && id != ""
}

func sessionIDOrDefault(ctx context.Context) string {
	if id, ok := SessionIDFromContext(ctx); ok {
		return id
	}
	return defaultSessionID
}

// ConversationStore persists one ConversationState per session id.
type ConversationStore struct {
	cache     Cache[*order.ConversationState]
	namespace string
}

func NewConversationStore(cache Cache[*order.ConversationState], namespace string) *ConversationStore {
	if namespace == "" {
		namespace = "po-agent"
	}
	return &ConversationStore{cache: cache, namespace: namespace}
}

func (s *ConversationStore) key(ctx context.Context) string {
	return s.namespace + ":" + sessionIDOrDefault(ctx)
}

// Load returns the stored state, or a fresh one when the session is new.
// The caller always gets its own copy; mutations only persist through Save.
func (s *ConversationStore) Load(ctx context.Context) (*order.ConversationState, error) {
	state, ok, err := s.cache.Get(ctx, s.key(ctx))
	if err != nil {
		return nil, err
	}
	if !ok || state == nil {
		return order.NewConversationState(), nil
	}
	return cloneState(state)
}

func (s *ConversationStore) Save(ctx context.Context, state *order.ConversationState) error {
	// Store a snapshot so later edits to the caller's state cannot reach
	// the cached copy behind a shared pointer.
	snapshot, err := cloneState(state)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.key(ctx), snapshot)
}

func cloneState(state *order.ConversationState) (*order.ConversationState, error) {
	raw, err := sonic.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out order.ConversationState
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ConversationStore) Clear(ctx context.Context) error {
	return s.cache.Del(ctx, s.key(ctx))
}
