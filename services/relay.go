// Package services contains the application services between the gateway
// and the domain/runtime layers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"studymate/contract"
	"studymate/domain"
	"studymate/domain/event"
	errs "studymate/errors"
	"studymate/moderation"
	"studymate/observability"
)

type IChatRelay interface {
	Send(ctx context.Context, roomID domain.RoomID, credential, text string) error
	History(ctx context.Context, roomID domain.RoomID) ([]event.HistoryEntry, error)
}

// ChatRelay validates, moderates, persists and broadcasts chat messages,
// and replays history on join. Persistence happens before broadcast: a
// message the store refused is never delivered to the room.
type ChatRelay struct {
	log        *slog.Logger
	verifier   contract.AuthVerifier
	directory  contract.UserDirectory
	store      contract.ChatStore
	publisher  contract.IDispatcher
	moderator  *moderation.Moderator
	monitoring *observability.Monitoring
	validate   *validator.Validate
	retries    int
}

func NewChatRelay(log *slog.Logger, verifier contract.AuthVerifier,
	directory contract.UserDirectory, store contract.ChatStore,
	publisher contract.IDispatcher, moderator *moderation.Moderator,
	monitoring *observability.Monitoring, retries int) *ChatRelay {
	return &ChatRelay{
		log:        log,
		verifier:   verifier,
		directory:  directory,
		store:      store,
		publisher:  publisher,
		moderator:  moderator,
		monitoring: monitoring,
		validate:   validator.New(),
		retries:    retries,
	}
}

// Send authenticates the credential, resolves the sender, masks censored
// words, persists the record (retrying once on store failure) and then
// broadcasts it to the room. Every failure is returned to the caller so the
// gateway can reject the originating connection explicitly.
func (r *ChatRelay) Send(ctx context.Context, roomID domain.RoomID, credential, text string) error {
	userID, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		return err
	}

	displayName, err := r.directory.Lookup(ctx, userID)
	if err != nil {
		return err
	}

	if err := r.validate.Var(text, "required,max=2000"); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidMessage, err)
	}

	content, masked := r.moderator.Censor(text)
	if masked {
		info := whatlanggo.Detect(text)
		r.log.Info("Censored message",
			"room", roomID,
			"sender", userID,
			"lang", info.Lang.Iso6391())
	}

	msg := domain.Message{
		ID:        uuid.New(),
		SenderID:  userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.append(ctx, roomID, msg); err != nil {
		r.monitoring.IncrMessagesRejected()
		return err
	}
	r.monitoring.IncrMessagesPersisted()

	return r.publisher.Publish(ctx, event.MessageBroadcast{
		Room:        string(roomID),
		DisplayName: displayName,
		Content:     content,
		At:          msg.CreatedAt,
	})
}

// append retries the store once before giving up.
func (r *ChatRelay) append(ctx context.Context, roomID domain.RoomID, msg domain.Message) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if err = r.store.Append(ctx, roomID, msg); err == nil {
			return nil
		}
		r.log.Warn("Chat append failed", "room", roomID, "attempt", attempt+1, "err", err)
	}
	return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
}

// History returns the room's chat records ascending by creation time, with
// each sender resolved to a display name. An unresolvable sender keeps the
// line with a placeholder rather than dropping history.
func (r *ChatRelay) History(ctx context.Context, roomID domain.RoomID) ([]event.HistoryEntry, error) {
	messages, err := r.store.List(ctx, roomID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(messages))
	resolve := func(senderID string) string {
		if name, ok := names[senderID]; ok {
			return name
		}
		name, err := r.directory.Lookup(ctx, senderID)
		if err != nil {
			r.log.Debug("Unresolvable sender in history", "room", roomID, "sender", senderID)
			name = "unknown"
		}
		names[senderID] = name
		return name
	}

	return lo.Map(messages, func(m domain.Message, _ int) event.HistoryEntry {
		return event.HistoryEntry{
			DisplayName: resolve(m.SenderID),
			Content:     m.Content,
			At:          m.CreatedAt,
		}
	}), nil
}
