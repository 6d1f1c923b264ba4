// Package event defines the deltas emitted after every room mutation.
// The fanout worker delivers them to every registered sink, replacing any
// implicit state replication with explicit notifications.
package event

import (
	"guardian-chat/domain"
)

type DomainEvent interface {
	RoomID() domain.RoomID
}

// System message types.
const (
	TypeJoin  = "join"
	TypeLeave = "leave"
)

// SystemMessage announces a participant joining or leaving.
type SystemMessage struct {
	Room domain.RoomID
	Text string
	Type string
}

func (e SystemMessage) RoomID() domain.RoomID { return e.Room }

// MessagePosted carries a freshly appended message, still pending
// classification. It is emitted before the classification request starts so
// every participant sees the message immediately.
type MessagePosted struct {
	Room    domain.RoomID
	Message domain.Message
}

func (e MessagePosted) RoomID() domain.RoomID { return e.Room }

// RiskUpdate carries a message whose assessment just became terminal.
// Emitted at most once per message id.
type RiskUpdate struct {
	Room    domain.RoomID
	Message domain.Message
}

func (e RiskUpdate) RoomID() domain.RoomID { return e.Room }
