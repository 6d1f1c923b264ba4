package domain

import (
	"time"
)

// Command is one inbound intent processed on the owning room's loop.
type Command interface {
	RoomID() RoomID
}

type JoinResult struct {
	Participant Participant
	Err         error
}

// JoinCommand carries a reply channel so capacity failures surface
// synchronously to the requesting connection only.
type JoinCommand struct {
	Room      RoomID
	SessionID string
	Username  string
	Reply     chan JoinResult
}

func (c JoinCommand) RoomID() RoomID { return c.Room }

type LeaveCommand struct {
	Room      RoomID
	SessionID string
}

func (c LeaveCommand) RoomID() RoomID { return c.Room }

type PostMessageCommand struct {
	Room      RoomID
	SessionID string
	Text      string
	CreatedAt time.Time
}

func (c PostMessageCommand) RoomID() RoomID { return c.Room }

// ApplyAssessmentCommand carries a terminal classification outcome back onto
// the room loop once the out-of-band request resolves.
type ApplyAssessmentCommand struct {
	Room       RoomID
	MessageID  string
	Assessment RiskAssessment
}

func (c ApplyAssessmentCommand) RoomID() RoomID { return c.Room }
