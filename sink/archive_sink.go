package sink

import (
	"context"
	"log/slog"

	"guardian-chat/domain/event"
	"guardian-chat/repositories"
)

// ArchiveSink persists messages once their classification is terminal.
// Pending messages never reach disk; the risk update carries the final
// annotated message.
type ArchiveSink struct {
	repository repositories.IMessageArchive
	log        *slog.Logger
}

func NewArchiveSink(repository repositories.IMessageArchive, log *slog.Logger) ArchiveSink {
	return ArchiveSink{repository: repository, log: log}
}

func (a ArchiveSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.RiskUpdate:
		return a.repository.Store(repositories.FromMessage(evt.Room, evt.Message))
	default:
		return nil
	}
}
