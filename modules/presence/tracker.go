package presence

import (
	"context"
	"fmt"
	"time"
)

// AudienceSource computes the users who should hear about a presence
// change: everyone sharing at least one chat with the subject. The chat
// service is the canonical source; a cache may wrap it.
type AudienceSource interface {
	Audience(ctx context.Context, userID string) ([]string, error)
}

// StatusStore persists the online flag and last-seen timestamp.
type StatusStore interface {
	SetOnlineStatus(userID string, isOnline bool, at time.Time) error
}

// Change describes a presence transition ready for fan-out.
type Change struct {
	UserID   string
	Username string
	IsOnline bool
	LastSeen time.Time
	Audience []string
}

// Tracker flips users between online and offline and resolves the
// audience for each transition.
type Tracker struct {
	store    StatusStore
	audience AudienceSource
}

// NewTracker creates a new presence tracker.
func NewTracker(store StatusStore, audience AudienceSource) *Tracker {
	return &Tracker{store: store, audience: audience}
}

// SetOnline marks the user online.
func (t *Tracker) SetOnline(ctx context.Context, userID, username string) (*Change, error) {
	return t.transition(ctx, userID, username, true)
}

// SetOffline marks the user offline and stamps last seen.
func (t *Tracker) SetOffline(ctx context.Context, userID, username string) (*Change, error) {
	return t.transition(ctx, userID, username, false)
}

func (t *Tracker) transition(ctx context.Context, userID, username string, online bool) (*Change, error) {
	now := time.Now()
	if err := t.store.SetOnlineStatus(userID, online, now); err != nil {
		return nil, fmt.Errorf("failed to update online status: %w", err)
	}

	audience, err := t.audience.Audience(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve presence audience: %w", err)
	}

	return &Change{
		UserID:   userID,
		Username: username,
		IsOnline: online,
		LastSeen: now,
		Audience: audience,
	}, nil
}
