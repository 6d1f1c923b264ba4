// Package sink provides the event consumers fed by the fanout worker:
// per-connection delivery channels, the persistent archive, and local
// timeline projections.
package sink

import (
	"context"

	"guardian-chat/domain/event"
)

// ConnSink bridges the fanout worker and one participant's connection.
// The transport's write pump drains Events and pushes frames to the client.
type ConnSink struct {
	Events chan event.DomainEvent
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout worker. A slow consumer must never stall
// the room, so a full buffer drops the event instead of blocking.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
