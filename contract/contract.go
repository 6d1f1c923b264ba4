//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"guardian-chat/domain"
	"guardian-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	GetSinksForRoom(roomID domain.RoomID) []EventSink
	Subscribe(participantID string, roomID domain.RoomID, sink EventSink)
	Unsubscribe(participantID string, roomID domain.RoomID)
}

// IClassifier resolves one message to a terminal risk assessment. The call
// may block up to its configured timeout; it never returns a pending level
// (failures yield the fallback assessment).
type IClassifier interface {
	Classify(ctx context.Context, text string, history []domain.Message, authorID string) domain.RiskAssessment
}
