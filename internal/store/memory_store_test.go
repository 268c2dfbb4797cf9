package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"prismpapers/pkg/domain"
)

func TestMemoryStoreDuplicateKeys(t *testing.T) {
	st := NewMemoryStore()

	id := domain.Identity{ID: "alice", Name: "Alice", CreatedAt: time.Now().UTC()}
	if err := st.CreateIdentity(id); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if err := st.CreateIdentity(id); !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("duplicate identity err = %v", err)
	}

	l := domain.Listing{AuthorID: "alice", Title: "Paper", Description: "d", Price: 100, ContentPointer: "u"}
	if err := st.CreateListing(l); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	if err := st.CreateListing(l); !errors.Is(err, domain.ErrListingExists) {
		t.Fatalf("duplicate listing err = %v", err)
	}

	r := domain.AccessReceipt{BuyerID: "bob", ListingID: "alice"}
	if err := st.CreateReceipt(r); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	if err := st.CreateReceipt(r); !errors.Is(err, domain.ErrAlreadyPurchased) {
		t.Fatalf("duplicate receipt err = %v", err)
	}

	rv := domain.PeerReview{ReviewerID: "bob", ListingID: "alice", Status: domain.ReviewPending}
	if err := st.CreateReview(rv); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if err := st.CreateReview(rv); !errors.Is(err, domain.ErrAlreadyReviewed) {
		t.Fatalf("duplicate review err = %v", err)
	}
}

func TestMemoryStoreReceiptKeyedByPair(t *testing.T) {
	st := NewMemoryStore()
	if err := st.CreateReceipt(domain.AccessReceipt{BuyerID: "bob", ListingID: "alice"}); err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	// Same buyer, different listing is a distinct receipt.
	if err := st.CreateReceipt(domain.AccessReceipt{BuyerID: "bob", ListingID: "carol"}); err != nil {
		t.Fatalf("second receipt: %v", err)
	}
	if _, ok, _ := st.GetReceipt("bob", "alice"); !ok {
		t.Fatal("receipt (bob, alice) missing")
	}
	if _, ok, _ := st.GetReceipt("alice", "bob"); ok {
		t.Fatal("reversed pair key matched")
	}
}

func TestMemoryStoreInTxRollback(t *testing.T) {
	st := NewMemoryStore()
	if err := st.SetBalance(domain.WalletOf("alice"), 500); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	boom := errors.New("boom")
	err := st.InTx(context.Background(), func(tx Store) error {
		if err := tx.CreateIdentity(domain.Identity{ID: "bob"}); err != nil {
			return err
		}
		if err := tx.SetBalance(domain.WalletOf("alice"), 0); err != nil {
			return err
		}
		if err := tx.AppendLedgerEntry(domain.LedgerEntry{ID: "e1", Amount: 500}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}

	if _, ok, _ := st.GetIdentity("bob"); ok {
		t.Fatal("rolled-back identity still present")
	}
	if bal, _ := st.GetBalance(domain.WalletOf("alice")); bal != 500 {
		t.Fatalf("rolled-back balance = %d, want 500", bal)
	}
	if entries, _ := st.LedgerEntriesFor("alice"); len(entries) != 0 {
		t.Fatalf("rolled-back journal entries = %d", len(entries))
	}
}

func TestMemoryStoreInTxCommit(t *testing.T) {
	st := NewMemoryStore()
	err := st.InTx(context.Background(), func(tx Store) error {
		return tx.CreateIdentity(domain.Identity{ID: "bob"})
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if _, ok, _ := st.GetIdentity("bob"); !ok {
		t.Fatal("committed identity missing")
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	st := NewMemoryStore()
	for _, author := range []string{"c", "a", "b"} {
		if err := st.CreateListing(domain.Listing{AuthorID: author, Title: "t", Price: 1}); err != nil {
			t.Fatalf("CreateListing(%s): %v", author, err)
		}
	}
	listings, err := st.ListListings()
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("listings = %d, want 3", len(listings))
	}
	for i, want := range []string{"c", "a", "b"} {
		if listings[i].AuthorID != want {
			t.Fatalf("listings[%d] = %s, want %s (insertion order)", i, listings[i].AuthorID, want)
		}
	}
}

func TestMemoryStoreSaveReviewStatus(t *testing.T) {
	st := NewMemoryStore()
	rv := domain.PeerReview{ReviewerID: "bob", ListingID: "alice", Status: domain.ReviewPending, ProposedReward: 200}
	if err := st.CreateReview(rv); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	rv.Status = domain.ReviewAccepted
	if err := st.SaveReview(rv); err != nil {
		t.Fatalf("SaveReview: %v", err)
	}
	got, ok, _ := st.GetReview("bob", "alice")
	if !ok || got.Status != domain.ReviewAccepted {
		t.Fatalf("review after save = %+v, ok=%v", got, ok)
	}
}
