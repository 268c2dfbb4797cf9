package store

import (
	"context"

	"prismpapers/pkg/domain"
)

// Store defines persistence for identities, listings, receipts, reviews,
// balances, and the transfer journal.
//
// Create* methods return the matching domain conflict error when the record
// key already exists. Inside InTx, reads of rows that the transaction will
// write back (identities, listings, reviews, balances) lock the row so
// concurrent operations touching the same record serialize instead of
// losing updates.
type Store interface {
	// InTx runs fn against a view of the store bound to one transaction.
	// Every write fn performs commits together or not at all.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// identities
	CreateIdentity(id domain.Identity) error
	GetIdentity(id string) (domain.Identity, bool, error)
	SaveIdentity(id domain.Identity) error

	// listings (keyed by author ID)
	CreateListing(l domain.Listing) error
	GetListing(authorID string) (domain.Listing, bool, error)
	SaveListing(l domain.Listing) error
	ListListings() ([]domain.Listing, error)

	// receipts (keyed by buyer+listing)
	CreateReceipt(r domain.AccessReceipt) error
	GetReceipt(buyerID, listingID string) (domain.AccessReceipt, bool, error)

	// reviews (keyed by reviewer+listing)
	CreateReview(r domain.PeerReview) error
	GetReview(reviewerID, listingID string) (domain.PeerReview, bool, error)
	SaveReview(r domain.PeerReview) error

	// balances and journal
	GetBalance(h domain.Holder) (uint64, error)
	SetBalance(h domain.Holder, amount uint64) error
	AppendLedgerEntry(e domain.LedgerEntry) error
	LedgerEntriesFor(identityID string) ([]domain.LedgerEntry, error)
}
