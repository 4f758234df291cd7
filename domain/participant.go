// Package domain contains core concepts of the study room system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant is a user's membership record within a Room.
// UserID is the stable identity; ConnID is transient and changes
// across reconnects. A Room holds at most one Participant per UserID.
type Participant struct {
	ConnID      string
	UserID      string
	DisplayName string
}
