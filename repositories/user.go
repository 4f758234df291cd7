package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	errs "studymate/errors"
)

// UserRepository stores user records in BadgerDB keyed by user id, and
// serves as the UserDirectory consumed by the gateway and the relay.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

type diskUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

func userKey(id string) []byte {
	return []byte("user:" + id)
}

// CreateUser persists a new user and returns the generated id. Used by the
// seeding tool; the server itself only resolves.
func (u *UserRepository) CreateUser(displayName string) (string, error) {
	newID := uuid.NewString()
	data, err := json.Marshal(diskUser{
		ID:          newID,
		DisplayName: displayName,
		CreatedAt:   time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(newID), data)
	})
	return newID, err
}

// Lookup resolves a user id to its display name.
func (u *UserRepository) Lookup(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var user diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", errs.ErrUnknownUser, userID)
	}
	if err != nil {
		return "", err
	}
	return user.DisplayName, nil
}
