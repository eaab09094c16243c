// Package notify turns scan results into outbound webhook notifications
// and records delivered completion events in the history store.
package notify

import (
	"context"

	"forgewatch/internal/store"
)

// Item is one forge item ready for notification, with everything needed
// to render its message line and build its history event.
type Item struct {
	ProfileID   string
	ProfileName string
	ItemID      string
	ItemName    string
	SlotGroup   string
	SlotIndex   string
	StartMS     int64
	EndMS       int64
}

// Event builds the dedup identity for this item.
func (it Item) Event(userID string) store.Event {
	return store.Event{
		UserID:    userID,
		ProfileID: it.ProfileID,
		StartMS:   it.StartMS,
		EndMS:     it.EndMS,
	}
}

// UserBatch is everything ready for one user in one cycle, across all of
// their accounts and profiles.
type UserBatch struct {
	UserID     string
	Preference string
	Items      []Item
}

// Deliverer sends one rendered notification. Implementations own their
// request timeout and must return an error rather than hang.
type Deliverer interface {
	Deliver(ctx context.Context, userID, message string) error
}
