package domain

import (
	"sort"
	"time"

	"guardian-chat/errors"
)

type RoomID string

// DefaultCapacity bounds concurrent participants per room.
const DefaultCapacity = 50

// Room is the session container owning its participant set and message log.
// It carries no synchronization on purpose: all mutation happens on the
// room's worker goroutine, never from anywhere else.
type Room struct {
	ID       RoomID
	Capacity int

	participants map[string]Participant
	messages     map[string]*Message
	order        []string
}

func NewRoom(id RoomID, capacity int) *Room {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Room{
		ID:           id,
		Capacity:     capacity,
		participants: make(map[string]Participant),
		messages:     make(map[string]*Message),
	}
}

// Join registers a participant under its session id, assigning a display
// name. Joining twice with the same session id returns the existing record,
// keeping at most one participant per connection identity.
func (r *Room) Join(sessionID, requestedName string) (Participant, error) {
	if p, ok := r.participants[sessionID]; ok {
		return p, nil
	}
	if len(r.participants) >= r.Capacity {
		return Participant{}, errors.ErrRoomFull
	}
	p := Participant{
		SessionID: sessionID,
		Username:  DisplayName(requestedName),
		Online:    true,
	}
	r.participants[sessionID] = p
	return p, nil
}

// Leave removes the participant if present. Unknown session ids are a
// no-op, reported through the boolean.
func (r *Room) Leave(sessionID string) (Participant, bool) {
	p, ok := r.participants[sessionID]
	if ok {
		delete(r.participants, sessionID)
	}
	return p, ok
}

func (r *Room) Participant(sessionID string) (Participant, bool) {
	p, ok := r.participants[sessionID]
	return p, ok
}

func (r *Room) Size() int {
	return len(r.participants)
}

// Append inserts a new pending message into the log. Insertion order is
// tracked separately from the id lookup so the log serves both in-place
// updates and time-ordered history.
func (r *Room) Append(authorID, author, text string, at time.Time) *Message {
	msg := &Message{
		ID:       NewMessageID(at),
		AuthorID: authorID,
		Author:   author,
		Text:     text,
		At:       at,
		Risk:     PendingAssessment(),
	}
	r.messages[msg.ID] = msg
	r.order = append(r.order, msg.ID)
	return msg
}

// ApplyAssessment moves one message to its terminal classification state.
// It returns false when the target is gone or already terminal, so a result
// is applied at most once and stale results are silently dropped.
func (r *Room) ApplyAssessment(messageID string, assessment RiskAssessment) (*Message, bool) {
	msg, ok := r.messages[messageID]
	if !ok || msg.Risk.Terminal() || !assessment.Terminal() {
		return nil, false
	}
	msg.Risk = assessment
	return msg, true
}

// RecentHistory returns the last limit messages ordered ascending by
// timestamp. The window is read-only and never mutates the log.
func (r *Room) RecentHistory(limit int) []Message {
	ordered := make([]Message, 0, len(r.order))
	for _, id := range r.order {
		ordered = append(ordered, *r.messages[id])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}
