package conversation

import (
	"errors"
	"fmt"
	"sync"

	"commentator/internal/services/llm"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable message in the conversation history.
type Turn struct {
	Role Role
	// Name is the speaker label for assistant turns ("Play-By-Play", "Color").
	Name  string
	Text  string
	Parts []llm.ContentPart
}

// Message converts the turn to the wire representation used by the LLM client.
func (t Turn) Message() llm.Message {
	return llm.Message{
		Role:  string(t.Role),
		Name:  t.Name,
		Text:  t.Text,
		Parts: append([]llm.ContentPart(nil), t.Parts...),
	}
}

var errUnpaired = errors.New("conversation: exchange must be a user turn followed by an assistant turn")

// Window is a bounded FIFO of turns with pairwise eviction. It is safe for
// concurrent use, but the session drives it from a single flow.
type Window struct {
	mu      sync.Mutex
	limit   int
	turns   []Turn
	evicted int
}

// NewWindow returns a window remembering memoryLimit exchanges. A limit of
// zero or less keeps no history.
func NewWindow(memoryLimit int) *Window {
	if memoryLimit < 0 {
		memoryLimit = 0
	}
	return &Window{limit: memoryLimit, turns: make([]Turn, 0, 2*memoryLimit+2)}
}

// PushPair appends one exchange and then evicts the oldest pairs until the
// window fits its capacity.
func (w *Window) PushPair(user, assistant Turn) error {
	if user.Role != RoleUser || assistant.Role != RoleAssistant {
		return fmt.Errorf("%w (got %s, %s)", errUnpaired, user.Role, assistant.Role)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = append(w.turns, cloneTurn(user), cloneTurn(assistant))
	for len(w.turns) > 2*w.limit {
		w.turns = w.turns[2:]
		w.evicted++
	}
	return nil
}

// Turns returns a copy of the history, oldest first.
func (w *Window) Turns() []Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Turn, len(w.turns))
	for i, turn := range w.turns {
		out[i] = cloneTurn(turn)
	}
	return out
}

// Len returns the number of stored turns. It is always even.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

// Limit returns the configured memory limit in exchanges.
func (w *Window) Limit() int {
	return w.limit
}

// Capacity returns the maximum number of turns held.
func (w *Window) Capacity() int {
	return 2 * w.limit
}

// Evicted returns how many exchanges have been dropped since creation.
func (w *Window) Evicted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.evicted
}

func cloneTurn(t Turn) Turn {
	if t.Parts != nil {
		t.Parts = append([]llm.ContentPart(nil), t.Parts...)
	}
	return t
}
