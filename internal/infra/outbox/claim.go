package outbox

import (
	"context"
	"time"

	appoutbox "skillswap/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// ClaimLease is how long a claimed record may stay unacknowledged before
// another worker picks it up again.
const ClaimLease = time.Minute

// Pending is a claimed outbox row handed to the relay.
type Pending struct {
	appoutbox.EventRecord
	Attempts int
}

// ClaimStore is the relay side of an outbox table. Each storage backend
// provides one next to its transactional Add.
type ClaimStore interface {
	// Claim returns the oldest due record or nil when nothing is due.
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
