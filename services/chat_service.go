//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"time"

	"guardian-chat/contract"
	"guardian-chat/domain"
	"guardian-chat/runtime"
)

type IChatService interface {
	Join(roomID domain.RoomID, sessionID, username string, sink contract.EventSink) (domain.Participant, error)
	Leave(roomID domain.RoomID, sessionID string)
	PostMessage(roomID domain.RoomID, sessionID, text string)
	RoomCount() int
}

type ChatService struct {
	lifecycle *runtime.Lifecycle
	registry  contract.IRegistry
}

func NewChatService(lifecycle *runtime.Lifecycle, registry contract.IRegistry) *ChatService {
	return &ChatService{lifecycle: lifecycle, registry: registry}
}

// Join subscribes the sink before dispatching so the joiner receives its
// own join announcement. On rejection the subscription is rolled back.
func (s *ChatService) Join(roomID domain.RoomID, sessionID, username string, sink contract.EventSink) (domain.Participant, error) {
	s.registry.Subscribe(sessionID, roomID, sink)
	participant, err := s.lifecycle.Join(roomID, sessionID, username)
	if err != nil {
		s.registry.Unsubscribe(sessionID, roomID)
		return domain.Participant{}, err
	}
	return participant, nil
}

// Leave unsubscribes first so the leaver does not receive its own leave
// announcement.
func (s *ChatService) Leave(roomID domain.RoomID, sessionID string) {
	s.registry.Unsubscribe(sessionID, roomID)
	s.lifecycle.Dispatch(domain.LeaveCommand{Room: roomID, SessionID: sessionID})
}

func (s *ChatService) PostMessage(roomID domain.RoomID, sessionID, text string) {
	s.lifecycle.Dispatch(domain.PostMessageCommand{
		Room:      roomID,
		SessionID: sessionID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *ChatService) RoomCount() int {
	return s.lifecycle.Count()
}
