package gateway

import (
	"time"

	"github.com/samber/lo"

	"studymate/domain/event"
)

// Client -> server event names.
const (
	EventJoinRoom    = "joinRoom"
	EventToggleTimer = "toggleTimer"
	EventResetTimer  = "resetTimer"
	EventSkipPhase   = "skipPhase"
	EventSendMessage = "sendMessage"
)

// Server -> client event names.
const (
	EventLoadMessages       = "loadMessages"
	EventTimerUpdate        = "timerUpdate"
	EventSessionUpdate      = "sessionUpdate"
	EventParticipantsUpdate = "participantsUpdate"
	EventSystemMessage      = "systemMessage"
	EventNewMessage         = "newMessage"
	EventRejected           = "rejected"
)

// ClientFrame is an inbound websocket frame. Credentials ride on the frames
// that need authentication (join, send); timer controls are authorized by
// connection identity against the room's admin.
type ClientFrame struct {
	Event   string `json:"event" validate:"required,oneof=joinRoom toggleTimer resetTimer skipPhase sendMessage"`
	RoomID  string `json:"roomId" validate:"required,max=64"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty" validate:"max=2000"`
}

// ServerFrame is an outbound websocket frame.
type ServerFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type TimerPayload struct {
	TimeLeft int    `json:"timeLeft"`
	Running  bool   `json:"running"`
	Phase    string `json:"phase"`
}

type SessionPayload struct {
	CurrentSession int `json:"currentSession"`
	TotalSessions  int `json:"totalSessions"`
}

type ParticipantPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
}

type RosterPayload struct {
	Participants []ParticipantPayload `json:"participants"`
	AdminID      string               `json:"adminId"`
}

type MessagePayload struct {
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
}

type HistoryEntryPayload struct {
	DisplayName string    `json:"displayName"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RejectedPayload struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// EncodeEvent maps a domain event to its wire frame. Returns false for
// events with no wire representation.
func EncodeEvent(e event.DomainEvent) (ServerFrame, bool) {
	switch evt := e.(type) {
	case event.TimerUpdated:
		return ServerFrame{Event: EventTimerUpdate, Payload: TimerPayload{
			TimeLeft: int(evt.TimeLeft.Seconds()),
			Running:  evt.Running,
			Phase:    evt.Phase,
		}}, true
	case event.SessionUpdated:
		return ServerFrame{Event: EventSessionUpdate, Payload: SessionPayload{
			CurrentSession: evt.CurrentSession,
			TotalSessions:  evt.TotalSessions,
		}}, true
	case event.ParticipantsUpdated:
		return ServerFrame{Event: EventParticipantsUpdate, Payload: RosterPayload{
			Participants: lo.Map(evt.Participants, func(m event.Member, _ int) ParticipantPayload {
				return ParticipantPayload{ConnectionID: m.ConnID, UserID: m.UserID, DisplayName: m.DisplayName}
			}),
			AdminID: evt.AdminConn,
		}}, true
	case event.SystemNotice:
		return ServerFrame{Event: EventSystemMessage, Payload: evt.Text}, true
	case event.MessageBroadcast:
		return ServerFrame{Event: EventNewMessage, Payload: MessagePayload{
			DisplayName: evt.DisplayName,
			Message:     evt.Content,
		}}, true
	case event.HistoryLoaded:
		return ServerFrame{Event: EventLoadMessages, Payload: lo.Map(evt.Entries,
			func(h event.HistoryEntry, _ int) HistoryEntryPayload {
				return HistoryEntryPayload{DisplayName: h.DisplayName, Message: h.Content, CreatedAt: h.At}
			})}, true
	case event.Rejected:
		return ServerFrame{Event: EventRejected, Payload: RejectedPayload{
			Op:     evt.Op,
			Reason: evt.Reason,
		}}, true
	default:
		return ServerFrame{}, false
	}
}
