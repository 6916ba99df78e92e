package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errEmptyEventID = errors.New("event id is required")

// EventLog records processed event ids of one source so redeliveries are skipped.
type EventLog struct {
	client *Client
	scope  string
	ttl    time.Duration
}

// Events returns the log for scope. Marks expire after ttl; zero keeps them forever.
func (c *Client) Events(scope string, ttl time.Duration) *EventLog {
	return &EventLog{client: c, scope: scope, ttl: ttl}
}

// CheckAndMark reports whether eventID was already recorded, recording it otherwise.
func (l *EventLog) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errEmptyEventID
	}
	set, err := l.client.SetNX(ctx, l.client.IdempotencyKey(l.scope, eventID), "1", l.ttl)
	if err != nil {
		return false, fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return !set, nil
}

// Delete forgets eventID so the next delivery is processed again.
func (l *EventLog) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errEmptyEventID
	}
	return l.client.Del(ctx, l.client.IdempotencyKey(l.scope, eventID))
}
