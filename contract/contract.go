//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"studymate/domain"
	"studymate/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; the supervisor recovers panics and
// restarts it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision purposes, avoiding the need for manual
// naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives fanned-out domain events. Implementations must not
// block longer than the fan-out timeout.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks live connections and their room membership.
type IRegistry interface {
	GetSinksForRoom(roomID domain.RoomID) []EventSink
	GetSink(connID string) (EventSink, bool)
	Subscribe(connID string, roomID domain.RoomID, sink EventSink)
	// Unsubscribe removes the connection and reports the room it was in.
	Unsubscribe(connID string) (domain.RoomID, bool)
	RoomOf(connID string) (domain.RoomID, bool)
}

// IDispatcher is the room-facing surface of the orchestrator used by the
// gateway: it resolves rooms, serializes commands per room, and publishes
// relay events.
type IDispatcher interface {
	// Attach registers the connection's sink ahead of the join, so that
	// broadcasts emitted while the caller replays history already reach it.
	Attach(connID string, roomID domain.RoomID, sink EventSink)
	// Connect registers the sink, creates the room on first join, and
	// dispatches the join command.
	Connect(connID string, roomID domain.RoomID, p domain.Participant, sink EventSink) error
	// Disconnect removes the connection and dispatches a leave to its room.
	Disconnect(connID string)
	// Control dispatches a timer control command to an existing room.
	Control(cmd domain.Command) error
	// Publish pushes a relay-produced event into the fan-out pipeline.
	Publish(ctx context.Context, e event.DomainEvent) error
}

// AuthVerifier validates a bearer credential and returns the stable user id.
type AuthVerifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// UserDirectory resolves a user id to a display name.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (string, error)
}

// ChatStore persists chat records per room, ordered by creation time.
type ChatStore interface {
	Append(ctx context.Context, roomID domain.RoomID, msg domain.Message) error
	List(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error)
}
