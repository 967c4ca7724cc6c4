// Package realtime defines the change-stream contract: a channel a
// client subscribes to for row-level insert/update events, plus the
// reconnect policy for when that channel breaks.
package realtime

import (
	"context"
	"math/rand"
	"time"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
)

// IncidentsTable is the only table the portal streams today.
const IncidentsTable = "incidents"

// Subscription is one live feed of change events. Unsubscribe releases
// the underlying transport and closes Events; it is safe to call more
// than once. After Events closes, Err reports why (nil on a clean
// Unsubscribe).
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Err() error
	Unsubscribe()
}

// Channel is the push-transport collaborator.
type Channel interface {
	Subscribe(ctx context.Context, table string, types ...domain.ChangeType) (Subscription, error)
}

// Publisher is the write side of the stream, used by the store after a
// successful insert or update.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

const (
	backoffBase = 250 * time.Millisecond
	backoffCap  = 30 * time.Second
)

// Backoff returns the wait before reconnect attempt n (0-based):
// exponential with full jitter, capped at 30s. The source contract
// leaves reconnection unspecified; this is our policy, paired with a
// full reseed of local state after every resubscribe since events may
// have been missed while disconnected.
func Backoff(attempt int) time.Duration {
	d := backoffBase << uint(attempt)
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}
