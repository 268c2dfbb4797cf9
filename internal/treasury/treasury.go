// Package treasury is the single choke point for balance changes. Workflows
// never touch balances directly; they hand the treasury a transactional
// ledger view and the treasury moves the full amount or nothing.
package treasury

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"prismpapers/pkg/domain"
)

// Ledger is the balance storage a transfer runs against. Implementations
// must be bound to the enclosing transaction so a failed operation rolls
// every balance change back.
type Ledger interface {
	GetBalance(h domain.Holder) (uint64, error)
	SetBalance(h domain.Holder, amount uint64) error
	AppendLedgerEntry(e domain.LedgerEntry) error
}

// Transfer moves amount from one holder to another and journals the move.
// The source must hold at least amount; the error distinguishes wallet from
// vault shortfalls so callers can report "fund your wallet" vs "nothing to
// withdraw".
func Transfer(tx Ledger, from, to domain.Holder, amount uint64, reason string, meta map[string]string) error {
	if from == to {
		return fmt.Errorf("transfer from holder to itself")
	}
	bal, err := tx.GetBalance(from)
	if err != nil {
		return fmt.Errorf("read source balance: %w", err)
	}
	if bal < amount {
		if from.Kind == domain.HolderWallet {
			return domain.ErrInsufficientFundsInWallet
		}
		return domain.ErrInsufficientFundsInVault
	}
	dest, err := tx.GetBalance(to)
	if err != nil {
		return fmt.Errorf("read destination balance: %w", err)
	}
	dest, err = AddU64(dest, amount)
	if err != nil {
		return err
	}
	if err := tx.SetBalance(from, bal-amount); err != nil {
		return fmt.Errorf("debit source: %w", err)
	}
	if err := tx.SetBalance(to, dest); err != nil {
		return fmt.Errorf("credit destination: %w", err)
	}
	return journal(tx, from, to, amount, reason, meta)
}

// Deposit credits a holder with value entering from outside the system.
func Deposit(tx Ledger, to domain.Holder, amount uint64, reason string, meta map[string]string) error {
	if amount == 0 {
		return domain.ErrAmountInvalid
	}
	bal, err := tx.GetBalance(to)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	bal, err = AddU64(bal, amount)
	if err != nil {
		return err
	}
	if err := tx.SetBalance(to, bal); err != nil {
		return fmt.Errorf("credit destination: %w", err)
	}
	return journal(tx, domain.Holder{Kind: domain.HolderExternal}, to, amount, reason, meta)
}

func journal(tx Ledger, from, to domain.Holder, amount uint64, reason string, meta map[string]string) error {
	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		FromKind:  from.Kind,
		FromID:    from.IdentityID,
		ToKind:    to.Kind,
		ToID:      to.IdentityID,
		Amount:    amount,
		Reason:    reason,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.AppendLedgerEntry(entry); err != nil {
		return fmt.Errorf("journal transfer: %w", err)
	}
	return nil
}
