package workers

import (
	"context"
	"log/slog"
	"strings"

	"guardian-chat/contract"
	"guardian-chat/domain"
	"guardian-chat/domain/event"
)

var _ contract.Worker = (*RoomWorker)(nil)

// RoomWorker is the single goroutine owning one room's state. Every
// mutation of the participant set and message log happens here, so the room
// needs no locks. Classification is the only suspending operation and runs
// in a spawned goroutine that re-enters the loop through a command, keeping
// the room responsive while a request is in flight.
type RoomWorker struct {
	room         *domain.Room
	commands     chan domain.Command
	events       chan event.DomainEvent
	classifier   contract.IClassifier
	historyLimit int
	maxContent   int
	onEmpty      func()
	log          *slog.Logger
}

func NewRoomWorker(
	room *domain.Room,
	commands chan domain.Command,
	events chan event.DomainEvent,
	classifier contract.IClassifier,
	historyLimit, maxContent int,
	onEmpty func(),
	log *slog.Logger) *RoomWorker {
	return &RoomWorker{
		room:         room,
		commands:     commands,
		events:       events,
		classifier:   classifier,
		historyLimit: historyLimit,
		maxContent:   maxContent,
		onEmpty:      onEmpty,
		log:          log,
	}
}

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping room worker", "room", w.room.ID)
			return nil
		case cmd, ok := <-w.commands:
			if !ok {
				return nil
			}
			if disposed := w.handle(ctx, cmd); disposed {
				w.log.Debug("Room disposed", "room", w.room.ID)
				return nil
			}
		}
	}
}

// handle processes one command and reports whether the room emptied out.
func (w *RoomWorker) handle(ctx context.Context, cmd domain.Command) bool {
	switch c := cmd.(type) {
	case domain.JoinCommand:
		w.handleJoin(ctx, c)
	case domain.LeaveCommand:
		return w.handleLeave(ctx, c)
	case domain.PostMessageCommand:
		w.handlePost(ctx, c)
	case domain.ApplyAssessmentCommand:
		w.handleAssessment(ctx, c)
	}
	return false
}

func (w *RoomWorker) handleJoin(ctx context.Context, cmd domain.JoinCommand) {
	participant, err := w.room.Join(cmd.SessionID, cmd.Username)
	cmd.Reply <- domain.JoinResult{Participant: participant, Err: err}
	if err != nil {
		w.log.Warn("Join rejected", "room", w.room.ID, "error", err)
		return
	}
	w.emit(ctx, event.SystemMessage{
		Room: w.room.ID,
		Text: participant.Username + " joined the chat",
		Type: event.TypeJoin,
	})
}

func (w *RoomWorker) handleLeave(ctx context.Context, cmd domain.LeaveCommand) bool {
	participant, existed := w.room.Leave(cmd.SessionID)
	if !existed {
		return false
	}
	w.emit(ctx, event.SystemMessage{
		Room: w.room.ID,
		Text: participant.Username + " left the chat",
		Type: event.TypeLeave,
	})
	if w.room.Size() == 0 {
		if w.onEmpty != nil {
			w.onEmpty()
		}
		return true
	}
	return false
}

func (w *RoomWorker) handlePost(ctx context.Context, cmd domain.PostMessageCommand) {
	author, ok := w.room.Participant(cmd.SessionID)
	if !ok {
		// Message from a connection that never joined or already left.
		return
	}

	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return
	}
	if runes := []rune(text); w.maxContent > 0 && len(runes) > w.maxContent {
		text = string(runes[:w.maxContent])
	}

	msg := w.room.Append(cmd.SessionID, author.Username, text, cmd.CreatedAt)

	// The pending message is announced before classification starts so chat
	// stays responsive no matter how slow the backend is.
	w.emit(ctx, event.MessagePosted{Room: w.room.ID, Message: *msg})

	history := w.room.RecentHistory(w.historyLimit)
	go w.classify(ctx, msg.ID, text, history, cmd.SessionID)
}

// classify runs off the room loop. Whatever happens, the classifier returns
// a terminal assessment; it is handed back as a command so the log update
// and broadcast stay on the loop. When the room has been disposed in the
// meantime the result is silently dropped.
func (w *RoomWorker) classify(ctx context.Context, messageID, text string, history []domain.Message, authorID string) {
	assessment := w.classifier.Classify(ctx, text, history, authorID)
	select {
	case w.commands <- domain.ApplyAssessmentCommand{
		Room:       w.room.ID,
		MessageID:  messageID,
		Assessment: assessment,
	}:
	case <-ctx.Done():
		w.log.Debug("Dropping classification result for disposed room",
			"room", w.room.ID, "message_id", messageID)
	}
}

func (w *RoomWorker) handleAssessment(ctx context.Context, cmd domain.ApplyAssessmentCommand) {
	msg, applied := w.room.ApplyAssessment(cmd.MessageID, cmd.Assessment)
	if !applied {
		w.log.Debug("Skipping stale assessment", "room", w.room.ID, "message_id", cmd.MessageID)
		return
	}
	w.emit(ctx, event.RiskUpdate{Room: w.room.ID, Message: *msg})
}

// emit keeps per-room broadcast order: events enter the shared fanout
// channel in the order this loop produces them.
func (w *RoomWorker) emit(ctx context.Context, e event.DomainEvent) {
	select {
	case w.events <- e:
	case <-ctx.Done():
	}
}
