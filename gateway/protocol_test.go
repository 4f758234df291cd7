package gateway

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"studymate/domain/event"
)

func TestEncodeEvent_TimerUpdate(t *testing.T) {
	req := require.New(t)

	frame, ok := EncodeEvent(event.TimerUpdated{
		Room:     "focus",
		TimeLeft: 25 * time.Minute,
		Running:  true,
		Phase:    "Study Time",
	})

	req.True(ok)
	req.Equal(EventTimerUpdate, frame.Event)
	payload, ok := frame.Payload.(TimerPayload)
	req.True(ok)
	// Seconds on the wire, not a duration
	req.Equal(1500, payload.TimeLeft)
	req.True(payload.Running)
	req.Equal("Study Time", payload.Phase)
}

func TestEncodeEvent_SessionUpdate(t *testing.T) {
	req := require.New(t)

	frame, ok := EncodeEvent(event.SessionUpdated{Room: "focus", CurrentSession: 2, TotalSessions: 4})

	req.True(ok)
	req.Equal(EventSessionUpdate, frame.Event)
	payload, ok := frame.Payload.(SessionPayload)
	req.True(ok)
	req.Equal(2, payload.CurrentSession)
	req.Equal(4, payload.TotalSessions)
}

func TestEncodeEvent_ParticipantsUpdate(t *testing.T) {
	req := require.New(t)

	frame, ok := EncodeEvent(event.ParticipantsUpdated{
		Room: "focus",
		Participants: []event.Member{
			{ConnID: "conn-a", UserID: "user-a", DisplayName: "Alice"},
			{ConnID: "conn-b", UserID: "user-b", DisplayName: "Bob"},
		},
		AdminConn: "conn-a",
	})

	req.True(ok)
	req.Equal(EventParticipantsUpdate, frame.Event)
	payload, ok := frame.Payload.(RosterPayload)
	req.True(ok)
	req.Len(payload.Participants, 2)
	req.Equal("conn-a", payload.AdminID)
	req.Equal("Alice", payload.Participants[0].DisplayName)
}

func TestEncodeEvent_SystemMessage_IsPlainText(t *testing.T) {
	req := require.New(t)

	frame, ok := EncodeEvent(event.SystemNotice{Room: "focus", Text: "Alice joined the room"})

	req.True(ok)
	req.Equal(EventSystemMessage, frame.Event)
	req.Equal("Alice joined the room", frame.Payload)
}

func TestEncodeEvent_NewMessage(t *testing.T) {
	req := require.New(t)

	frame, ok := EncodeEvent(event.MessageBroadcast{
		Room: "focus", DisplayName: "Alice", Content: "hello", At: time.Now().UTC(),
	})

	req.True(ok)
	req.Equal(EventNewMessage, frame.Event)
	payload, ok := frame.Payload.(MessagePayload)
	req.True(ok)
	req.Equal("Alice", payload.DisplayName)
	req.Equal("hello", payload.Message)
}

func TestEncodeEvent_LoadMessages(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	frame, ok := EncodeEvent(event.HistoryLoaded{
		Room: "focus",
		Conn: "conn-a",
		Entries: []event.HistoryEntry{
			{DisplayName: "Alice", Content: "first", At: at},
			{DisplayName: "Bob", Content: "second", At: at.Add(time.Minute)},
		},
	})

	req.True(ok)
	req.Equal(EventLoadMessages, frame.Event)
	payload, ok := frame.Payload.([]HistoryEntryPayload)
	req.True(ok)
	req.Len(payload, 2)
	req.Equal("first", payload[0].Message)
}

func TestEncodeEvent_Rejected(t *testing.T) {
	req := require.New(t)

	frame, ok := EncodeEvent(event.Rejected{
		Room: "focus", Conn: "conn-a", Op: "toggleTimer", Reason: "unauthorized",
	})

	req.True(ok)
	req.Equal(EventRejected, frame.Event)
	payload, ok := frame.Payload.(RejectedPayload)
	req.True(ok)
	req.Equal("toggleTimer", payload.Op)
	req.Equal("unauthorized", payload.Reason)
}

func TestClientFrame_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		frame   ClientFrame
		wantErr bool
	}{
		{"Valid join", ClientFrame{Event: "joinRoom", RoomID: "focus", Token: "t"}, false},
		{"Valid message", ClientFrame{Event: "sendMessage", RoomID: "focus", Token: "t", Message: "hi"}, false},
		{"Unknown event", ClientFrame{Event: "hackTheTimer", RoomID: "focus"}, true},
		{"Missing event", ClientFrame{RoomID: "focus"}, true},
		{"Missing room", ClientFrame{Event: "joinRoom"}, true},
		{"Room id too long", ClientFrame{Event: "joinRoom", RoomID: string(make([]byte, 65))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := validate.Struct(tt.frame)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}
