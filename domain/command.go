package domain

// Command is a room-targeted operation applied by the room's worker.
// All commands for one room are serialized through its mailbox.
type Command interface {
	RoomID() RoomID
}

type JoinCommand struct {
	Room        RoomID
	Participant Participant
}

func (c JoinCommand) RoomID() RoomID { return c.Room }

type LeaveCommand struct {
	Room RoomID
	Conn string
}

func (c LeaveCommand) RoomID() RoomID { return c.Room }

type ToggleTimerCommand struct {
	Room RoomID
	Conn string
}

func (c ToggleTimerCommand) RoomID() RoomID { return c.Room }

type ResetTimerCommand struct {
	Room RoomID
	Conn string
}

func (c ResetTimerCommand) RoomID() RoomID { return c.Room }

type SkipPhaseCommand struct {
	Room RoomID
	Conn string
}

func (c SkipPhaseCommand) RoomID() RoomID { return c.Room }

// TickCommand is injected by the scheduler, never by a connection.
type TickCommand struct {
	Room RoomID
}

func (c TickCommand) RoomID() RoomID { return c.Room }
