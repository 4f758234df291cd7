// Package domain contains core concepts of the study room system.
// This file defines Message records and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat record.
type Message struct {
	ID        uuid.UUID
	SenderID  string
	Content   string
	CreatedAt time.Time
}
