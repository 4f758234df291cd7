package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"studymate/contract"
	"studymate/domain"
	"studymate/domain/event"
	errs "studymate/errors"
	"studymate/observability"
	"studymate/runtime/workers"
)

// roomHandle is a room's mailbox. The worker that drains it is the room's
// single owner; everyone else only enqueues.
type roomHandle struct {
	commands chan domain.Command
}

// Orchestrator owns the room map: atomic get-or-create on first join,
// per-room command serialization through mailboxes, and eviction of rooms
// whose roster emptied. It also carries the shared event channel drained by
// the fan-out worker.
type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    contract.IRegistry
	monitoring  *observability.Monitoring
	settings    domain.Settings
	handles     map[domain.RoomID]*roomHandle
	events      chan event.DomainEvent
	mailboxSize int
	sinkTimeout time.Duration
	tickEvery   time.Duration
	ctx         context.Context
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, monitoring *observability.Monitoring,
	settings domain.Settings, mailboxSize, bufferSize int,
	sinkTimeout, tickEvery time.Duration) *Orchestrator {
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		monitoring:  monitoring,
		settings:    settings,
		handles:     make(map[domain.RoomID]*roomHandle),
		events:      make(chan event.DomainEvent, bufferSize),
		mailboxSize: mailboxSize,
		sinkTimeout: sinkTimeout,
		tickEvery:   tickEvery,
		// ctx stays nil until Start supplies the supervised context; room
		// creation is refused before then so no worker can outlive it.
	}
}

// Start registers the pipeline workers (fan-out, scheduler) and runs the
// supervisor. Blocks until Stop or parent context cancellation.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanout := workers.NewEventFanout(o.log, o.registry, o.events, o.sinkTimeout, o.monitoring)
	ticker := workers.NewTickerWorker(o.tickEvery, o.Tick, o.log)

	o.mu.Lock()
	o.ctx = ctx
	o.supervisor.Add(fanout)
	o.supervisor.Add(ticker)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervision context; Start returns once all workers are
// done.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// Attach subscribes the connection's sink without joining a room, so events
// fanned out during the caller's history replay already reach it. Subscribe
// is idempotent; the later Connect for the same connection is a no-op on the
// registry.
func (o *Orchestrator) Attach(connID string, roomID domain.RoomID, sink contract.EventSink) {
	o.registry.Subscribe(connID, roomID, sink)
}

// Connect subscribes the connection's sink, creates the room lazily on
// first join, and enqueues the join command.
func (o *Orchestrator) Connect(connID string, roomID domain.RoomID,
	p domain.Participant, sink contract.EventSink) error {
	o.registry.Subscribe(connID, roomID, sink)

	err := o.dispatch(domain.JoinCommand{Room: roomID, Participant: p}, true)
	if err != nil {
		o.registry.Unsubscribe(connID)
	}
	return err
}

// Disconnect removes the connection and enqueues a leave to the room it was
// in. No-op if the connection never joined.
func (o *Orchestrator) Disconnect(connID string) {
	roomID, ok := o.registry.Unsubscribe(connID)
	if !ok {
		return
	}
	if err := o.dispatch(domain.LeaveCommand{Room: roomID, Conn: connID}, false); err != nil {
		o.log.Error("Failed to dispatch leave", "room", roomID, "conn", connID, "err", err)
	}
}

// Control enqueues a timer control command. The room must already exist;
// controls never create rooms.
func (o *Orchestrator) Control(cmd domain.Command) error {
	return o.dispatch(cmd, false)
}

// Publish pushes a relay-produced event into the fan-out pipeline, keeping
// a single ordered path to the sinks.
func (o *Orchestrator) Publish(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case o.events <- e:
		return nil
	}
}

// Tick enqueues a tick into every live room mailbox. The snapshot is taken
// under the lock so eviction cannot race the iteration; the sends are
// non-blocking so one congested room cannot stall the clock for the others.
func (o *Orchestrator) Tick() {
	o.mu.Lock()
	type target struct {
		id     domain.RoomID
		handle *roomHandle
	}
	targets := lo.MapToSlice(o.handles, func(id domain.RoomID, h *roomHandle) target {
		return target{id: id, handle: h}
	})
	o.mu.Unlock()

	for _, t := range targets {
		select {
		case t.handle.commands <- domain.TickCommand{Room: t.id}:
		default:
			o.monitoring.IncrTicksDropped()
			o.log.Warn("Room mailbox full, dropping tick", "room", t.id)
		}
	}
}

// Rooms reports the number of live room handles.
func (o *Orchestrator) Rooms() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handles)
}

// dispatch enqueues a command, creating the room first when allowed. The
// enqueue happens under the same lock as eviction, so a command can never
// land in a mailbox whose worker already retired.
func (o *Orchestrator) dispatch(cmd domain.Command, createRoom bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	handle, ok := o.handles[cmd.RoomID()]
	if !ok {
		if !createRoom {
			return fmt.Errorf("%w: %s", errs.ErrUnknownRoom, cmd.RoomID())
		}
		if o.ctx == nil {
			return fmt.Errorf("orchestrator not started, refusing to create room %s", cmd.RoomID())
		}
		handle = o.spawnRoomLocked(cmd.RoomID())
	}

	select {
	case handle.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("room %s mailbox full, dropping command", cmd.RoomID())
	}
}

// spawnRoomLocked creates the room state and starts its worker under
// supervision. Caller holds o.mu.
func (o *Orchestrator) spawnRoomLocked(roomID domain.RoomID) *roomHandle {
	handle := &roomHandle{commands: make(chan domain.Command, o.mailboxSize)}
	o.handles[roomID] = handle

	room := domain.NewRoom(roomID, o.settings)
	worker := workers.NewRoomWorker(room, handle.commands, o.events, o.tryEvict, o.log)
	o.supervisor.Start(o.ctx, worker)

	o.log.Info("Room created", "room", roomID)
	return handle
}

// tryEvict removes a drained room. Refused while commands are queued: the
// roster may refill from a join already in the mailbox.
func (o *Orchestrator) tryEvict(roomID domain.RoomID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	handle, ok := o.handles[roomID]
	if !ok || len(handle.commands) > 0 {
		return false
	}
	delete(o.handles, roomID)
	return true
}
