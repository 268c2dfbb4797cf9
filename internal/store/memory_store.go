package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"prismpapers/pkg/domain"
)

// MemoryStore keeps all records in-process. It mirrors the Postgres store's
// behavior closely enough for tests: duplicate keys fail, and InTx rolls the
// whole state back on error by snapshotting before the transaction runs.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	identities map[string]domain.Identity
	listings   map[string]domain.Listing
	listOrder  []string
	receipts   map[string]domain.AccessReceipt
	reviews    map[string]domain.PeerReview
	balances   map[domain.Holder]uint64
	ledger     []domain.LedgerEntry
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

func newMemState() *memState {
	return &memState{
		identities: make(map[string]domain.Identity),
		listings:   make(map[string]domain.Listing),
		receipts:   make(map[string]domain.AccessReceipt),
		reviews:    make(map[string]domain.PeerReview),
		balances:   make(map[domain.Holder]uint64),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		identities: maps.Clone(s.identities),
		listings:   maps.Clone(s.listings),
		listOrder:  slices.Clone(s.listOrder),
		receipts:   maps.Clone(s.receipts),
		reviews:    maps.Clone(s.reviews),
		balances:   maps.Clone(s.balances),
		ledger:     slices.Clone(s.ledger),
	}
}

func pairKey(a, b string) string { return a + "\x00" + b }

// InTx serializes transactions under one lock and restores the pre-transaction
// snapshot when fn fails, so no partial mutation is ever observable.
func (m *MemoryStore) InTx(_ context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.st.clone()
	if err := fn(&memTx{st: m.st}); err != nil {
		m.st = snap
		return err
	}
	return nil
}

func (m *MemoryStore) CreateIdentity(id domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).CreateIdentity(id)
}

func (m *MemoryStore) GetIdentity(id string) (domain.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).GetIdentity(id)
}

func (m *MemoryStore) SaveIdentity(id domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).SaveIdentity(id)
}

func (m *MemoryStore) CreateListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).CreateListing(l)
}

func (m *MemoryStore) GetListing(authorID string) (domain.Listing, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).GetListing(authorID)
}

func (m *MemoryStore) SaveListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).SaveListing(l)
}

func (m *MemoryStore) ListListings() ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).ListListings()
}

func (m *MemoryStore) CreateReceipt(r domain.AccessReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).CreateReceipt(r)
}

func (m *MemoryStore) GetReceipt(buyerID, listingID string) (domain.AccessReceipt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).GetReceipt(buyerID, listingID)
}

func (m *MemoryStore) CreateReview(r domain.PeerReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).CreateReview(r)
}

func (m *MemoryStore) GetReview(reviewerID, listingID string) (domain.PeerReview, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).GetReview(reviewerID, listingID)
}

func (m *MemoryStore) SaveReview(r domain.PeerReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).SaveReview(r)
}

func (m *MemoryStore) GetBalance(h domain.Holder) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).GetBalance(h)
}

func (m *MemoryStore) SetBalance(h domain.Holder, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).SetBalance(h, amount)
}

func (m *MemoryStore) AppendLedgerEntry(e domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).AppendLedgerEntry(e)
}

func (m *MemoryStore) LedgerEntriesFor(identityID string) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: m.st}).LedgerEntriesFor(identityID)
}

// memTx is the view handed to InTx callbacks. The enclosing MemoryStore
// already holds the lock.
type memTx struct {
	st *memState
}

func (t *memTx) InTx(_ context.Context, fn func(tx Store) error) error {
	// already inside a transaction
	return fn(t)
}

func (t *memTx) CreateIdentity(id domain.Identity) error {
	if _, exists := t.st.identities[id.ID]; exists {
		return domain.ErrIdentityExists
	}
	t.st.identities[id.ID] = id
	return nil
}

func (t *memTx) GetIdentity(id string) (domain.Identity, bool, error) {
	v, ok := t.st.identities[id]
	return v, ok, nil
}

func (t *memTx) SaveIdentity(id domain.Identity) error {
	t.st.identities[id.ID] = id
	return nil
}

func (t *memTx) CreateListing(l domain.Listing) error {
	if _, exists := t.st.listings[l.AuthorID]; exists {
		return domain.ErrListingExists
	}
	t.st.listings[l.AuthorID] = l
	t.st.listOrder = append(t.st.listOrder, l.AuthorID)
	return nil
}

func (t *memTx) GetListing(authorID string) (domain.Listing, bool, error) {
	v, ok := t.st.listings[authorID]
	return v, ok, nil
}

func (t *memTx) SaveListing(l domain.Listing) error {
	t.st.listings[l.AuthorID] = l
	return nil
}

func (t *memTx) ListListings() ([]domain.Listing, error) {
	res := make([]domain.Listing, 0, len(t.st.listOrder))
	for _, id := range t.st.listOrder {
		if l, ok := t.st.listings[id]; ok {
			res = append(res, l)
		}
	}
	return res, nil
}

func (t *memTx) CreateReceipt(r domain.AccessReceipt) error {
	key := pairKey(r.BuyerID, r.ListingID)
	if _, exists := t.st.receipts[key]; exists {
		return domain.ErrAlreadyPurchased
	}
	t.st.receipts[key] = r
	return nil
}

func (t *memTx) GetReceipt(buyerID, listingID string) (domain.AccessReceipt, bool, error) {
	v, ok := t.st.receipts[pairKey(buyerID, listingID)]
	return v, ok, nil
}

func (t *memTx) CreateReview(r domain.PeerReview) error {
	key := pairKey(r.ReviewerID, r.ListingID)
	if _, exists := t.st.reviews[key]; exists {
		return domain.ErrAlreadyReviewed
	}
	t.st.reviews[key] = r
	return nil
}

func (t *memTx) GetReview(reviewerID, listingID string) (domain.PeerReview, bool, error) {
	v, ok := t.st.reviews[pairKey(reviewerID, listingID)]
	return v, ok, nil
}

func (t *memTx) SaveReview(r domain.PeerReview) error {
	t.st.reviews[pairKey(r.ReviewerID, r.ListingID)] = r
	return nil
}

func (t *memTx) GetBalance(h domain.Holder) (uint64, error) {
	return t.st.balances[h], nil
}

func (t *memTx) SetBalance(h domain.Holder, amount uint64) error {
	t.st.balances[h] = amount
	return nil
}

func (t *memTx) AppendLedgerEntry(e domain.LedgerEntry) error {
	t.st.ledger = append(t.st.ledger, e)
	return nil
}

func (t *memTx) LedgerEntriesFor(identityID string) ([]domain.LedgerEntry, error) {
	var res []domain.LedgerEntry
	for _, e := range t.st.ledger {
		if e.FromID == identityID || e.ToID == identityID {
			res = append(res, e)
		}
	}
	return res, nil
}
