package order

// Step names one position in the conversation flow. The happy path is linear;
// collecting loops on itself and confirm may fall back to greeting on cancel.
type Step string

const (
	StepGreeting   Step = "greeting"
	StepPOIntent   Step = "po_intent"
	StepCollecting Step = "collecting"
	StepConfirm    Step = "confirm"
	StepDone       Step = "done"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Option is one disambiguation candidate shown to the user.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Disambiguation freezes one slot until the user picks among the candidates.
type Disambiguation struct {
	Path       string   `json:"path"`
	Category   string   `json:"category"`
	Mention    string   `json:"mention"`
	Candidates []Option `json:"candidates"`
}

// ConversationState is the whole per-session state: the record being built,
// the flow position and the transient per-turn working data. It is the unit of
// save and restore when a session store is configured.
type ConversationState struct {
	Step              Step            `json:"step"`
	Order             *OrderRecord    `json:"order"`
	PendingItem       *LineItem       `json:"pending_item,omitempty"`
	LastQuestion      string          `json:"last_question,omitempty"`
	OptionalsAsked    bool            `json:"optionals_asked"`
	OptionalsAnswered bool            `json:"optionals_answered"`
	OptionalsWanted   bool            `json:"optionals_wanted"`
	Pending           *Disambiguation `json:"pending,omitempty"`
	History           []Turn          `json:"history"`
}

func NewConversationState() *ConversationState {
	return &ConversationState{
		Step:  StepGreeting,
		Order: NewOrderRecord(),
	}
}

// Reset restores the state to its initial value in place.
func (s *ConversationState) Reset() {
	*s = *NewConversationState()
}

func (s *ConversationState) AddTurn(speaker Speaker, text string) {
	s.History = append(s.History, Turn{Speaker: speaker, Text: text})
}
