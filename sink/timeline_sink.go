package sink

import (
	"context"
	"sync"

	"guardian-chat/domain"
	"guardian-chat/domain/event"
)

// Timeline builds a local ordered view of one room's messages from observed
// events, applying risk updates in place. It is used by the terminal client
// and by tests; it never emits events itself.
type Timeline struct {
	mu       sync.Mutex
	messages []domain.Message
	byID     map[string]int
}

func NewTimeline() *Timeline {
	return &Timeline{byID: make(map[string]int)}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt := e.(type) {
	case event.MessagePosted:
		t.byID[evt.Message.ID] = len(t.messages)
		t.messages = append(t.messages, evt.Message)
	case event.RiskUpdate:
		if idx, ok := t.byID[evt.Message.ID]; ok {
			t.messages[idx] = evt.Message
		}
	}
	return nil
}

// Messages returns a copy of the projected timeline in posting order.
func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
