// Package event defines the domain events emitted by rooms and the relay.
// Events carry plain string room ids so that the domain package can keep an
// outbox of events without an import cycle.
package event

import (
	"time"
)

type DomainEvent interface {
	RoomID() string
}

// Addressed marks events delivered to a single connection instead of the
// whole room. An empty TargetConn means broadcast.
type Addressed interface {
	TargetConn() string
}

// Member is the wire-facing view of a roster entry.
type Member struct {
	ConnID      string
	UserID      string
	DisplayName string
}

// TimerUpdated carries the full timer snapshot. Conn is set when the
// snapshot is for a joining connection only.
type TimerUpdated struct {
	Room     string
	Conn     string
	TimeLeft time.Duration
	Running  bool
	Phase    string
}

func (e TimerUpdated) RoomID() string     { return e.Room }
func (e TimerUpdated) TargetConn() string { return e.Conn }

type SessionUpdated struct {
	Room           string
	Conn           string
	CurrentSession int
	TotalSessions  int
}

func (e SessionUpdated) RoomID() string     { return e.Room }
func (e SessionUpdated) TargetConn() string { return e.Conn }

type ParticipantsUpdated struct {
	Room         string
	Participants []Member
	AdminConn    string
}

func (e ParticipantsUpdated) RoomID() string { return e.Room }

type SystemNotice struct {
	Room string
	Text string
}

func (e SystemNotice) RoomID() string { return e.Room }

// MessageBroadcast is published by the chat relay once a message has been
// persisted successfully.
type MessageBroadcast struct {
	Room        string
	DisplayName string
	Content     string
	At          time.Time
}

func (e MessageBroadcast) RoomID() string { return e.Room }

// HistoryEntry is one replayed chat line with its sender already resolved.
type HistoryEntry struct {
	DisplayName string
	Content     string
	At          time.Time
}

// HistoryLoaded is delivered once, to the joining connection only.
type HistoryLoaded struct {
	Room    string
	Conn    string
	Entries []HistoryEntry
}

func (e HistoryLoaded) RoomID() string     { return e.Room }
func (e HistoryLoaded) TargetConn() string { return e.Conn }

// Rejected tells the originating connection that an operation was refused.
type Rejected struct {
	Room   string
	Conn   string
	Op     string
	Reason string
}

func (e Rejected) RoomID() string     { return e.Room }
func (e Rejected) TargetConn() string { return e.Conn }
