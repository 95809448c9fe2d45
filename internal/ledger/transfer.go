package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransferManager validates and executes two-sided transfers between the
// accounts of one owner. Both legs of a transfer are committed in a single
// critical section; a failed transfer leaves every account untouched.
type TransferManager struct {
	src AccountSource
	ids *TransferIDGenerator
}

func NewTransferManager(src AccountSource) *TransferManager {
	return &TransferManager{src: src, ids: NewTransferIDGenerator()}
}

// Receipt confirms a committed transfer.
type Receipt struct {
	TransferID  string
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Timestamp   time.Time
	Message     string
}

// Validate resolves both identifiers and checks the transfer without
// mutating anything. On success it returns the resolved source and
// destination accounts.
func (m *TransferManager) Validate(fromID, toID string, amount decimal.Decimal) (from, to *Account, err error) {
	from, ok := Resolve(m.src, fromID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: source account %q", ErrAccountNotFound, fromID)
	}
	to, ok = Resolve(m.src, toID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: destination account %q", ErrAccountNotFound, toID)
	}
	if from == to {
		return nil, nil, ErrSameAccount
	}
	if amount.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: transfer of %s", ErrInvalidAmount, amount.StringFixed(2))
	}
	if from.AvailableBalance().LessThan(amount) {
		return nil, nil, fmt.Errorf("%w: available balance $%s", ErrInsufficientFunds, from.AvailableBalance().StringFixed(2))
	}
	return from, to, nil
}

// Execute runs Validate, then re-checks the transfer under both account
// locks before committing: in a shared-account setting the balances may
// have moved between check and act. On success it debits the source,
// credits the destination and stamps both ledger entries with one freshly
// generated transfer ID and one timestamp. On any failure nothing changes.
func (m *TransferManager) Execute(fromID, toID string, amount decimal.Decimal, memo string) (*Receipt, error) {
	from, to, err := m.Validate(fromID, toID, amount)
	if err != nil {
		return nil, err
	}

	accounts := m.src.Accounts()
	unlock := lockForTransfer(accounts, from, to)
	defer unlock()

	// Guard against state changed since Validate.
	if from.available().LessThan(amount) {
		return nil, fmt.Errorf("%w: available balance $%s", ErrInsufficientFunds, from.available().StringFixed(2))
	}

	transferID := m.ids.Next(func(candidate string) bool {
		for _, a := range accounts {
			for _, tx := range a.entries {
				if tx.IsTransfer() && tx.TransferID == candidate {
					return true
				}
			}
		}
		return false
	})

	now := time.Now()
	out := Transaction{
		Amount:      amount.Neg(),
		Kind:        TxTransfer,
		Timestamp:   now,
		TransferID:  transferID,
		FromAccount: string(from.kind),
		ToAccount:   string(to.kind),
		Memo:        memo,
		IsOutgoing:  true,
	}
	in := out
	in.Amount = amount
	in.IsOutgoing = false

	from.apply(amount.Neg(), out)
	to.apply(amount, in)

	msg := fmt.Sprintf(
		"Transfer of $%s from %s to %s completed successfully. Transfer ID: %s",
		amount.StringFixed(2), from.displayName(), to.displayName(), transferID,
	)
	return &Receipt{
		TransferID:  transferID,
		FromAccount: from.displayName(),
		ToAccount:   to.displayName(),
		Amount:      amount,
		Timestamp:   now,
		Message:     msg,
	}, nil
}

// History returns transfer entries for the identified account, or for the
// whole collection when identifier is empty, newest first. Timestamp ties
// keep ledger and collection iteration order.
func (m *TransferManager) History(identifier string) ([]Transaction, error) {
	selected := m.src.Accounts()
	if identifier != "" {
		a, ok := Resolve(m.src, identifier)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, identifier)
		}
		selected = []*Account{a}
	}

	unlock := readLockAll(selected)
	var transfers []Transaction
	for _, a := range selected {
		for _, tx := range a.entries {
			if tx.IsTransfer() {
				transfers = append(transfers, tx)
			}
		}
	}
	unlock()

	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.After(transfers[j].Timestamp)
	})
	return transfers, nil
}

// ByID scans every ledger for the transfer with the given correlation ID.
// Absence is not an error.
func (m *TransferManager) ByID(transferID string) (Transaction, bool) {
	accounts := m.src.Accounts()
	unlock := readLockAll(accounts)
	defer unlock()
	for _, a := range accounts {
		for _, tx := range a.entries {
			if tx.IsTransfer() && tx.TransferID == transferID {
				return tx, true
			}
		}
	}
	return Transaction{}, false
}
