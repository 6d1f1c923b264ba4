package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"guardian-chat/domain"
	"guardian-chat/domain/event"
	"guardian-chat/errors"
	"guardian-chat/mocks"
	"guardian-chat/runtime"
	"guardian-chat/runtime/workers"
	"guardian-chat/sink"
)

func newChatService(t *testing.T, registry *mocks.MockIRegistry, capacity int) *ChatService {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	classifier := mocks.NewMockIClassifier(ctrl)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.RiskAssessment{Level: domain.RiskLow, Action: domain.ActionAllow, Trend: domain.TrendStable}).
		AnyTimes()

	events := make(chan event.DomainEvent, 64)
	supervisor := workers.NewSupervisor(log)
	lifecycle := runtime.NewLifecycle(log, supervisor, classifier, events, capacity, 15, 512, 16)

	ctx, cancel := context.WithCancel(context.Background())
	lifecycle.Start(ctx)
	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		supervisor.Stop()
		<-done
	})

	return NewChatService(lifecycle, registry)
}

func TestChatService_JoinSubscribesBeforeDispatch(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().GetSinksForRoom(gomock.Any()).Return(nil).AnyTimes()

	// Given a registry expecting the subscription
	svc := newChatService(t, registry, 50)
	session := uuid.NewString()
	connSink := sink.NewConnSink(8)
	registry.EXPECT().Subscribe(session, domain.RoomID("chat_room"), connSink).Times(1)

	// When joining
	participant, err := svc.Join("chat_room", session, "alice", connSink)

	// Then the participant is admitted and counted
	req.NoError(err)
	req.Equal("alice", participant.Username)
	req.Equal(1, svc.RoomCount())
}

func TestChatService_JoinRollsBackSubscriptionOnRejection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().GetSinksForRoom(gomock.Any()).Return(nil).AnyTimes()

	// Given a room already at capacity
	svc := newChatService(t, registry, 1)
	aliceSession := uuid.NewString()
	registry.EXPECT().Subscribe(aliceSession, domain.RoomID("chat_room"), gomock.Any()).Times(1)
	_, err := svc.Join("chat_room", aliceSession, "alice", sink.NewConnSink(8))
	req.NoError(err)

	// Then the rejected joiner's subscription is rolled back
	bobSession := uuid.NewString()
	subscribed := registry.EXPECT().Subscribe(bobSession, domain.RoomID("chat_room"), gomock.Any()).Times(1)
	registry.EXPECT().Unsubscribe(bobSession, domain.RoomID("chat_room")).After(subscribed).Times(1)

	// When the join is refused
	_, err = svc.Join("chat_room", bobSession, "bob", sink.NewConnSink(8))
	req.ErrorIs(err, errors.ErrRoomFull)
}

func TestChatService_LeaveUnsubscribesFirst(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().GetSinksForRoom(gomock.Any()).Return(nil).AnyTimes()

	// Given a joined participant
	svc := newChatService(t, registry, 50)
	session := uuid.NewString()
	registry.EXPECT().Subscribe(session, domain.RoomID("chat_room"), gomock.Any()).Times(1)
	_, err := svc.Join("chat_room", session, "alice", sink.NewConnSink(8))
	req.NoError(err)

	// Then the sink is removed before the room processes the leave
	registry.EXPECT().Unsubscribe(session, domain.RoomID("chat_room")).Times(1)

	// When leaving
	svc.Leave("chat_room", session)

	// And the empty room winds down
	req.Eventually(func() bool {
		return svc.RoomCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}
