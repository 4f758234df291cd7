package workers

import (
	"context"
	"log/slog"

	"studymate/domain"
	"studymate/domain/event"
)

// RoomWorker is the single owner of one Room's state. Every operation
// targeting the room flows through its mailbox, so reads and writes never
// interleave. Emitted events are flushed to the shared event channel in
// mutation order.
type RoomWorker struct {
	room     *domain.Room
	commands <-chan domain.Command
	events   chan<- event.DomainEvent
	// evict asks the orchestrator to retire the room once the roster is
	// empty; it refuses while commands are still queued.
	evict func(domain.RoomID) bool
	log   *slog.Logger
}

func NewRoomWorker(room *domain.Room, commands <-chan domain.Command,
	events chan<- event.DomainEvent, evict func(domain.RoomID) bool, log *slog.Logger) *RoomWorker {
	return &RoomWorker{room: room, commands: commands, events: events, evict: evict, log: log}
}

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping room worker", "room", w.room.ID())
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				return nil
			}
			w.apply(ctx, cmd)

			if err := w.flush(ctx); err != nil {
				return err
			}

			if w.room.Empty() && w.evict(w.room.ID()) {
				w.log.Info("Room evicted", "room", w.room.ID())
				return nil
			}
		}
	}
}

// apply mutates the room. Admin-only operations refused by the room produce
// a targeted rejection so the caller observes the refusal instead of
// silence; the room state and broadcasts stay untouched.
func (w *RoomWorker) apply(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.JoinCommand:
		w.room.Join(c.Participant)
	case domain.LeaveCommand:
		if !w.room.Leave(c.Conn) {
			w.log.Debug("Leave for unknown connection", "room", c.Room, "conn", c.Conn)
		}
	case domain.ToggleTimerCommand:
		w.reject(ctx, c.Conn, "toggleTimer", w.room.ToggleTimer(c.Conn))
	case domain.ResetTimerCommand:
		w.reject(ctx, c.Conn, "resetTimer", w.room.ResetTimer(c.Conn))
	case domain.SkipPhaseCommand:
		w.reject(ctx, c.Conn, "skipPhase", w.room.SkipPhase(c.Conn))
	case domain.TickCommand:
		w.room.Tick()
	default:
		w.log.Warn("Unknown command", "room", cmd.RoomID())
	}
}

func (w *RoomWorker) reject(ctx context.Context, conn, op string, err error) {
	if err == nil {
		return
	}
	evt := event.Rejected{
		Room:   string(w.room.ID()),
		Conn:   conn,
		Op:     op,
		Reason: err.Error(),
	}
	select {
	case <-ctx.Done():
	case w.events <- evt:
	}
}

func (w *RoomWorker) flush(ctx context.Context) error {
	for _, e := range w.room.FlushEvents() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case w.events <- e:
		}
	}
	return nil
}
