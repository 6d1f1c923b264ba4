package workers

import (
	"context"
	"log/slog"
	"time"

	"guardian-chat/contract"
	"guardian-chat/domain/event"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout broadcasts domain events to the room's registered participant
// sinks plus the permanent sinks (archive, monitoring, projections).
//
// A single fanout goroutine drains the shared event channel, so events for
// one room reach every sink in the exact order that room's loop emitted
// them. Delivery is best-effort with no retries: EventFanout is not a
// message broker.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		events:      events,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout delivers one event to every sink. Sink failures are logged and
// never interrupt delivery to the remaining sinks.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := append(w.registry.GetSinksForRoom(evt.RoomID()), w.permanentSinks...)
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed to consume event", "room", evt.RoomID(), "error", err)
		}
		cancel()
	}
}
