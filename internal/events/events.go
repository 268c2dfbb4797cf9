// Package events publishes settlement notifications after an operation
// commits. Publishing is best-effort: a broker failure is logged by the
// caller and never unwinds the committed transaction.
package events

import (
	"context"
	"time"
)

// Event kinds emitted by the marketplace.
const (
	KindPurchaseSettled = "purchase.settled"
	KindReviewAccepted  = "review.accepted"
	KindReviewRejected  = "review.rejected"
	KindWithdrawal      = "withdrawal.completed"
	KindDeposit         = "deposit.completed"
)

// Event describes one settled marketplace action.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor"`
	Listing    string    `json:"listing,omitempty"`
	Amount     uint64    `json:"amount"`
	Fee        uint64    `json:"fee,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
