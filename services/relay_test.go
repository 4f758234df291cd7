package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"studymate/domain"
	"studymate/domain/event"
	errs "studymate/errors"
	"studymate/mocks"
	"studymate/moderation"
	"studymate/observability"
)

type relayFixture struct {
	verifier   *mocks.MockAuthVerifier
	directory  *mocks.MockUserDirectory
	store      *mocks.MockChatStore
	dispatcher *mocks.MockIDispatcher
	monitoring *observability.Monitoring
	relay      *ChatRelay
}

func newRelayFixture(t *testing.T, ctrl *gomock.Controller) *relayFixture {
	t.Helper()
	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	require.NoError(t, err)

	f := &relayFixture{
		verifier:   mocks.NewMockAuthVerifier(ctrl),
		directory:  mocks.NewMockUserDirectory(ctrl),
		store:      mocks.NewMockChatStore(ctrl),
		dispatcher: mocks.NewMockIDispatcher(ctrl),
		monitoring: observability.NewMonitoring(),
	}
	f.relay = NewChatRelay(slog.Default(), f.verifier, f.directory, f.store,
		f.dispatcher, &moderator, f.monitoring, 1)
	return f
}

func TestChatRelay_Send_PersistsThenBroadcasts(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(ctx, "token-a").Return("user-a", nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-a").Return("Alice", nil).Times(1)

	var stored domain.Message
	f.store.EXPECT().
		Append(ctx, domain.RoomID("focus"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.RoomID, msg domain.Message) error {
			stored = msg
			return nil
		}).Times(1)

	var published event.DomainEvent
	f.dispatcher.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			published = e
			return nil
		}).Times(1)

	req.NoError(f.relay.Send(ctx, "focus", "token-a", "hello room"))

	req.Equal("user-a", stored.SenderID)
	req.Equal("hello room", stored.Content)
	req.NotEmpty(stored.ID)

	broadcast, ok := published.(event.MessageBroadcast)
	req.True(ok)
	req.Equal("Alice", broadcast.DisplayName)
	req.Equal("hello room", broadcast.Content)
	req.Equal(uint64(1), f.monitoring.Snapshot().MessagesPersisted)
}

func TestChatRelay_Send_CensorsBeforePersisting(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(ctx, "token-a").Return("user-a", nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-a").Return("Alice", nil).Times(1)

	var stored domain.Message
	f.store.EXPECT().
		Append(ctx, domain.RoomID("focus"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.RoomID, msg domain.Message) error {
			stored = msg
			return nil
		}).Times(1)

	var published event.DomainEvent
	f.dispatcher.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			published = e
			return nil
		}).Times(1)

	req.NoError(f.relay.Send(ctx, "focus", "token-a", "you badger"))

	// The stored record and the broadcast carry the same masked text, so a
	// later history replay matches what the room saw live
	req.Equal("you ******", stored.Content)
	req.Equal("you ******", published.(event.MessageBroadcast).Content)
}

func TestChatRelay_Send_InvalidCredential(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(ctx, "bad-token").
		Return("", errs.ErrInvalidCredential).Times(1)
	// Neither the store nor the room must be touched
	f.store.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	err := f.relay.Send(ctx, "focus", "bad-token", "hello")
	req.ErrorIs(err, errs.ErrInvalidCredential)
}

func TestChatRelay_Send_UnknownUser(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(ctx, "token-a").Return("user-ghost", nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-ghost").
		Return("", errs.ErrUnknownUser).Times(1)
	f.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	err := f.relay.Send(ctx, "focus", "token-a", "hello")
	req.ErrorIs(err, errs.ErrUnknownUser)
}

func TestChatRelay_Send_InvalidMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
	}{
		{"Empty message", ""},
		{"Oversized message", strings.Repeat("a", 2001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f.verifier.EXPECT().Verify(ctx, "token-a").Return("user-a", nil).Times(1)
			f.directory.EXPECT().Lookup(ctx, "user-a").Return("Alice", nil).Times(1)
			// Input refused before the store is ever involved, and the
			// failure is not reported as a persistence problem
			f.store.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			err := f.relay.Send(ctx, "focus", "token-a", tt.text)
			req.ErrorIs(err, errs.ErrInvalidMessage)
			req.NotErrorIs(err, errs.ErrPersistence)
		})
	}
}

func TestChatRelay_Send_StoreFailure_RetriesOnce_ThenRejects(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(ctx, "token-a").Return("user-a", nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-a").Return("Alice", nil).Times(1)

	// Given a store that keeps failing: one attempt plus one retry
	f.store.EXPECT().
		Append(ctx, domain.RoomID("focus"), gomock.Any()).
		Return(errors.New("disk on fire")).
		Times(2)
	// A refused message is never broadcast
	f.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	err := f.relay.Send(ctx, "focus", "token-a", "hello")
	req.ErrorIs(err, errs.ErrPersistence)
	req.Equal(uint64(1), f.monitoring.Snapshot().MessagesRejected)
}

func TestChatRelay_Send_StoreRecovers_OnRetry(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(ctx, "token-a").Return("user-a", nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-a").Return("Alice", nil).Times(1)

	gomock.InOrder(
		f.store.EXPECT().Append(ctx, domain.RoomID("focus"), gomock.Any()).
			Return(errors.New("transient")),
		f.store.EXPECT().Append(ctx, domain.RoomID("focus"), gomock.Any()).
			Return(nil),
	)
	f.dispatcher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	req.NoError(f.relay.Send(ctx, "focus", "token-a", "hello"))
}

func TestChatRelay_History_ResolvesDisplayNames(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	at := time.Now().UTC()
	f.store.EXPECT().List(ctx, domain.RoomID("focus")).Return([]domain.Message{
		{SenderID: "user-a", Content: "first", CreatedAt: at},
		{SenderID: "user-b", Content: "second", CreatedAt: at.Add(time.Minute)},
		{SenderID: "user-a", Content: "third", CreatedAt: at.Add(2 * time.Minute)},
	}, nil).Times(1)

	// Each sender is resolved once, not per message
	f.directory.EXPECT().Lookup(ctx, "user-a").Return("Alice", nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-b").Return("Bob", nil).Times(1)

	entries, err := f.relay.History(ctx, "focus")
	req.NoError(err)
	req.Len(entries, 3)
	req.Equal("Alice", entries[0].DisplayName)
	req.Equal("Bob", entries[1].DisplayName)
	req.Equal("Alice", entries[2].DisplayName)
	req.Equal("first", entries[0].Content)
}

func TestChatRelay_History_UnresolvableSender_KeepsLine(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRelayFixture(t, ctrl)
	ctx := context.Background()

	f.store.EXPECT().List(ctx, domain.RoomID("focus")).Return([]domain.Message{
		{SenderID: "user-deleted", Content: "still here", CreatedAt: time.Now().UTC()},
	}, nil).Times(1)
	f.directory.EXPECT().Lookup(ctx, "user-deleted").
		Return("", errs.ErrUnknownUser).Times(1)

	entries, err := f.relay.History(ctx, "focus")
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("unknown", entries[0].DisplayName)
	req.Equal("still here", entries[0].Content)
}
