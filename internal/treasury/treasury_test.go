package treasury

import (
	"errors"
	"testing"

	"prismpapers/internal/store"
	"prismpapers/pkg/domain"
)

func TestTransferMovesFundsAndJournals(t *testing.T) {
	st := store.NewMemoryStore()
	from := domain.WalletOf("alice")
	to := domain.VaultOf("bob")
	if err := st.SetBalance(from, 1000); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	if err := Transfer(st, from, to, 400, "payment", map[string]string{"listing": "bob"}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if bal, _ := st.GetBalance(from); bal != 600 {
		t.Fatalf("source balance = %d, want 600", bal)
	}
	if bal, _ := st.GetBalance(to); bal != 400 {
		t.Fatalf("destination balance = %d, want 400", bal)
	}

	entries, err := st.LedgerEntriesFor("alice")
	if err != nil {
		t.Fatalf("LedgerEntriesFor: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Fatal("journal entry missing ID")
	}
	if e.Amount != 400 || e.Reason != "payment" {
		t.Fatalf("journal entry = %+v", e)
	}
	if e.FromKind != domain.HolderWallet || e.ToKind != domain.HolderVault {
		t.Fatalf("journal holder kinds = %s -> %s", e.FromKind, e.ToKind)
	}
}

func TestTransferInsufficientWallet(t *testing.T) {
	st := store.NewMemoryStore()
	from := domain.WalletOf("alice")
	if err := st.SetBalance(from, 10); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	err := Transfer(st, from, domain.VaultOf("bob"), 11, "payment", nil)
	if !errors.Is(err, domain.ErrInsufficientFundsInWallet) {
		t.Fatalf("err = %v, want ErrInsufficientFundsInWallet", err)
	}
	if bal, _ := st.GetBalance(from); bal != 10 {
		t.Fatalf("failed transfer changed source balance: %d", bal)
	}
}

func TestTransferInsufficientVault(t *testing.T) {
	st := store.NewMemoryStore()
	err := Transfer(st, domain.VaultOf("bob"), domain.WalletOf("bob"), 1, "withdrawal", nil)
	if !errors.Is(err, domain.ErrInsufficientFundsInVault) {
		t.Fatalf("err = %v, want ErrInsufficientFundsInVault", err)
	}
}

func TestTransferSameHolder(t *testing.T) {
	st := store.NewMemoryStore()
	w := domain.WalletOf("alice")
	if err := st.SetBalance(w, 100); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if err := Transfer(st, w, w, 10, "loop", nil); err == nil {
		t.Fatal("self transfer succeeded")
	}
}

func TestDeposit(t *testing.T) {
	st := store.NewMemoryStore()
	w := domain.WalletOf("alice")

	if err := Deposit(st, w, 0, "deposit", nil); !errors.Is(err, domain.ErrAmountInvalid) {
		t.Fatalf("zero deposit err = %v, want ErrAmountInvalid", err)
	}

	if err := Deposit(st, w, 250, "deposit", nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if bal, _ := st.GetBalance(w); bal != 250 {
		t.Fatalf("balance = %d, want 250", bal)
	}

	entries, _ := st.LedgerEntriesFor("alice")
	if len(entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(entries))
	}
	if entries[0].FromKind != domain.HolderExternal {
		t.Fatalf("deposit source kind = %s, want external", entries[0].FromKind)
	}
}

func TestPlatformVaultHolder(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SetBalance(domain.WalletOf("buyer"), 100); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if err := Transfer(st, domain.WalletOf("buyer"), domain.PlatformVault(), 5, "fee", nil); err != nil {
		t.Fatalf("Transfer to platform: %v", err)
	}
	if bal, _ := st.GetBalance(domain.PlatformVault()); bal != 5 {
		t.Fatalf("platform balance = %d, want 5", bal)
	}
}
