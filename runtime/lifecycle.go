package runtime

import (
	"context"
	"log/slog"
	"sync"

	"guardian-chat/contract"
	"guardian-chat/domain"
	"guardian-chat/domain/event"
	"guardian-chat/errors"
	"guardian-chat/runtime/workers"
)

// roomHandle pairs a live room with its command channel and the context
// bounding its worker. The room struct itself belongs to the worker and is
// never touched here after start.
type roomHandle struct {
	commands chan domain.Command
	ctx      context.Context
	cancel   context.CancelFunc
}

// Lifecycle is the process-wide room table. Rooms are created on the first
// join for a logical name and disposed as soon as the last participant
// leaves. The table is the only shared state between rooms and is guarded by
// a single mutex; room internals stay lock-free on their own loops.
type Lifecycle struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*roomHandle

	log          *slog.Logger
	supervisor   contract.ISupervisor
	classifier   contract.IClassifier
	events       chan event.DomainEvent
	capacity     int
	historyLimit int
	maxContent   int
	bufferSize   int

	baseCtx context.Context
}

func NewLifecycle(log *slog.Logger, supervisor contract.ISupervisor,
	classifier contract.IClassifier, events chan event.DomainEvent,
	capacity, historyLimit, maxContent, bufferSize int) *Lifecycle {
	return &Lifecycle{
		rooms:        make(map[domain.RoomID]*roomHandle),
		log:          log,
		supervisor:   supervisor,
		classifier:   classifier,
		events:       events,
		capacity:     capacity,
		historyLimit: historyLimit,
		maxContent:   maxContent,
		bufferSize:   bufferSize,
	}
}

// Start binds the lifecycle to the process context. Room workers inherit
// from it, so cancelling the process context winds down every room.
func (l *Lifecycle) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseCtx = ctx
}

// Count reports the number of live rooms for the liveness probe.
func (l *Lifecycle) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}

// Join routes a join request to the room's loop and waits for its reply so
// capacity failures surface synchronously. A room being disposed at the
// same moment is retried once against a fresh room.
func (l *Lifecycle) Join(roomID domain.RoomID, sessionID, username string) (domain.Participant, error) {
	for attempt := 0; attempt < 2; attempt++ {
		handle := l.getOrCreate(roomID)
		reply := make(chan domain.JoinResult, 1)
		cmd := domain.JoinCommand{
			Room:      roomID,
			SessionID: sessionID,
			Username:  username,
			Reply:     reply,
		}

		select {
		case handle.commands <- cmd:
		case <-handle.ctx.Done():
			continue
		}

		select {
		case result := <-reply:
			return result.Participant, result.Err
		case <-handle.ctx.Done():
			continue
		}
	}
	return domain.Participant{}, errors.ErrRoomClosed
}

// Dispatch forwards a command to its room's loop. Commands for unknown or
// closing rooms are dropped, which is exactly the no-op behavior wanted for
// late leaves and stale classification results. A full command buffer drops
// too rather than blocking the caller.
func (l *Lifecycle) Dispatch(cmd domain.Command) {
	l.mu.Lock()
	handle, ok := l.rooms[cmd.RoomID()]
	l.mu.Unlock()
	if !ok {
		return
	}

	select {
	case handle.commands <- cmd:
	case <-handle.ctx.Done():
	default:
		l.log.Warn("Command channel full, dropping command", "room", cmd.RoomID())
	}
}

// getOrCreate returns the live handle for a room, creating the room and
// starting its supervised worker when needed.
func (l *Lifecycle) getOrCreate(roomID domain.RoomID) *roomHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	if handle, ok := l.rooms[roomID]; ok {
		return handle
	}

	base := l.baseCtx
	if base == nil {
		base = context.Background()
	}
	roomCtx, cancel := context.WithCancel(base)
	handle := &roomHandle{
		commands: make(chan domain.Command, l.bufferSize),
		ctx:      roomCtx,
		cancel:   cancel,
	}
	l.rooms[roomID] = handle

	room := domain.NewRoom(roomID, l.capacity)
	worker := workers.NewRoomWorker(
		room,
		handle.commands,
		l.events,
		l.classifier,
		l.historyLimit,
		l.maxContent,
		func() { l.dispose(roomID, handle) },
		l.log,
	)
	l.supervisor.Start(roomCtx, worker)

	l.log.Info("Room created", "room", roomID)
	return handle
}

// dispose removes a room from the table and cancels its context. The handle
// comparison protects against tearing down a newer room that reused the
// same name.
func (l *Lifecycle) dispose(roomID domain.RoomID, handle *roomHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current, ok := l.rooms[roomID]; ok && current == handle {
		delete(l.rooms, roomID)
		handle.cancel()
		l.log.Info("Room disposed", "room", roomID)
	}
}
