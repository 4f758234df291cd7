// Package gateway accepts real-time connections, authenticates inbound
// events, and bridges them to the room runtime and the chat relay.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"studymate/contract"
	"studymate/domain"
	"studymate/domain/event"
	errs "studymate/errors"
	"studymate/services"
)

type Options struct {
	ConnBufferSize  int
	MaxMessageBytes int64
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
}

type Server struct {
	log        *slog.Logger
	dispatcher contract.IDispatcher
	relay      services.IChatRelay
	verifier   contract.AuthVerifier
	directory  contract.UserDirectory
	validate   *validator.Validate
	upgrader   websocket.Upgrader

	connBufferSize  int
	maxMessageBytes int64
	writeTimeout    time.Duration
	pongTimeout     time.Duration
}

func NewServer(log *slog.Logger, dispatcher contract.IDispatcher,
	relay services.IChatRelay, verifier contract.AuthVerifier,
	directory contract.UserDirectory, opts Options) *Server {
	return &Server{
		log:        log,
		dispatcher: dispatcher,
		relay:      relay,
		verifier:   verifier,
		directory:  directory,
		validate:   validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the page origin; the page
			// itself is served elsewhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connBufferSize:  opts.ConnBufferSize,
		maxMessageBytes: opts.MaxMessageBytes,
		writeTimeout:    opts.WriteTimeout,
		pongTimeout:     opts.PongTimeout,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newClient(uuid.NewString(), conn, s)
	s.log.Info("Client connected", "conn", c.id, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	go c.writePump(ctx)

	c.readPump(ctx)
	cancel()

	s.dispatcher.Disconnect(c.id)
	_ = conn.Close()
	s.log.Info("Client gone", "conn", c.id)
}

func (s *Server) handleFrame(ctx context.Context, c *client, frame ClientFrame) {
	if err := s.validate.Struct(frame); err != nil {
		c.rejectDirect(ctx, frame.Event, "malformed frame")
		return
	}

	roomID := domain.RoomID(frame.RoomID)

	switch frame.Event {
	case EventJoinRoom:
		s.handleJoin(ctx, c, frame)
	case EventToggleTimer:
		s.handleControl(ctx, c, frame, domain.ToggleTimerCommand{Room: roomID, Conn: c.id})
	case EventResetTimer:
		s.handleControl(ctx, c, frame, domain.ResetTimerCommand{Room: roomID, Conn: c.id})
	case EventSkipPhase:
		s.handleControl(ctx, c, frame, domain.SkipPhaseCommand{Room: roomID, Conn: c.id})
	case EventSendMessage:
		if err := s.relay.Send(ctx, roomID, frame.Token, frame.Message); err != nil {
			s.log.Warn("Message refused", "conn", c.id, "room", roomID, "err", err)
			c.rejectDirect(ctx, frame.Event, reasonFor(err))
		}
	}
}

// handleJoin authenticates, replays history to the joiner, then hands the
// join to the room runtime. The history frame goes through the same sink as
// everything else, so the joiner always sees history before the roster and
// timer snapshots the room emits.
func (s *Server) handleJoin(ctx context.Context, c *client, frame ClientFrame) {
	userID, err := s.verifier.Verify(ctx, frame.Token)
	if err != nil {
		c.rejectDirect(ctx, frame.Event, reasonFor(err))
		return
	}

	displayName, err := s.directory.Lookup(ctx, userID)
	if err != nil {
		c.rejectDirect(ctx, frame.Event, reasonFor(err))
		return
	}

	roomID := domain.RoomID(frame.RoomID)
	if c.room != "" && c.room != roomID {
		// Switching rooms: leave the old one first.
		s.dispatcher.Disconnect(c.id)
		c.room = ""
	}

	// Attach the sink before reading history: a message broadcast while
	// the replay query runs is delivered live instead of being missed.
	s.dispatcher.Attach(c.id, roomID, c.sink)

	entries, err := s.relay.History(ctx, roomID)
	if err != nil {
		// History failure is not fatal to the join; the client gets an
		// empty batch, as an empty room would.
		s.log.Error("History replay failed", "room", roomID, "err", err)
		entries = nil
	}
	if err := c.sink.Consume(ctx, event.HistoryLoaded{
		Room:    frame.RoomID,
		Conn:    c.id,
		Entries: entries,
	}); err != nil {
		s.log.Warn("History delivery failed", "conn", c.id, "err", err)
	}

	p := domain.Participant{ConnID: c.id, UserID: userID, DisplayName: displayName}
	if err := s.dispatcher.Connect(c.id, roomID, p, c.sink); err != nil {
		s.log.Error("Join dispatch failed", "room", roomID, "conn", c.id, "err", err)
		c.rejectDirect(ctx, frame.Event, "room unavailable")
		return
	}
	c.room = roomID
}

func (s *Server) handleControl(ctx context.Context, c *client, frame ClientFrame, cmd domain.Command) {
	if err := s.dispatcher.Control(cmd); err != nil {
		c.rejectDirect(ctx, frame.Event, reasonFor(err))
	}
}

// reasonFor maps internal errors to the stable wire reasons. Anything
// unexpected stays generic so internals don't leak to clients.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, errs.ErrInvalidCredential):
		return "invalid credential"
	case errors.Is(err, errs.ErrUnknownUser):
		return "unknown user"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, errs.ErrInvalidMessage):
		return "invalid message"
	case errors.Is(err, errs.ErrPersistence):
		return "message not delivered"
	case errors.Is(err, errs.ErrUnknownRoom):
		return "unknown room"
	default:
		return "operation failed"
	}
}
