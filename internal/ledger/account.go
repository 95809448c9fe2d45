package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account owns one ordered, append-only ledger of transactions. Every
// mutation goes through Deposit, Withdraw or a TransferManager; nothing
// else touches the balance or the ledger.
//
// The mutex guards all mutable fields. Multi-account operations lock
// accounts in ascending ID order to keep lock acquisition globally
// consistent (see TransferManager).
type Account struct {
	id        uuid.UUID
	kind      Kind
	createdAt time.Time

	mu           sync.RWMutex
	nickname     string
	balance      decimal.Decimal
	overdraft    decimal.Decimal
	entries      []Transaction
	lastActivity time.Time
}

// NewAccount constructs an account with an opening balance. The overdraft
// limit only applies to kinds that support one; for everything else it is
// clamped to zero. A negative limit is clamped as well.
func NewAccount(kind Kind, balance, overdraftLimit decimal.Decimal, nickname string) *Account {
	if !kind.SupportsOverdraft() || overdraftLimit.Sign() < 0 {
		overdraftLimit = decimal.Zero
	}
	now := time.Now()
	return &Account{
		id:           uuid.New(),
		kind:         kind,
		createdAt:    now,
		nickname:     strings.TrimSpace(nickname),
		balance:      balance,
		overdraft:    overdraftLimit,
		lastActivity: now,
	}
}

// ID is the stable identity of the account, assigned at construction.
func (a *Account) ID() uuid.UUID { return a.id }

func (a *Account) Kind() Kind { return a.kind }

func (a *Account) CreatedAt() time.Time { return a.createdAt }

func (a *Account) Nickname() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nickname
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

func (a *Account) OverdraftLimit() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.overdraft
}

// AvailableBalance is the true spendable ceiling: balance plus overdraft.
func (a *Account) AvailableBalance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.available()
}

func (a *Account) LastActivity() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastActivity
}

// Ledger returns a copy of the account's transaction history in insertion
// order. Callers cannot mutate the underlying entries.
func (a *Account) Ledger() []Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Transaction, len(a.entries))
	copy(out, a.entries)
	return out
}

// DisplayName returns the nickname when one is set, otherwise the
// capitalized account kind.
func (a *Account) DisplayName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.displayName()
}

// Matches reports whether identifier refers to this account, either by
// nickname or by kind, both case-insensitively.
func (a *Account) Matches(identifier string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.matchesNickname(identifier) || a.matchesKind(identifier)
}

// Deposit credits a positive amount and appends a deposit entry.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit of %s", ErrInvalidAmount, amount.StringFixed(2))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apply(amount, Transaction{Amount: amount, Kind: TxDeposit, Timestamp: time.Now()})
	return nil
}

// Withdraw debits a positive amount. It fails without side effects when the
// amount is not positive or when the resulting balance would fall below the
// negative of the overdraft limit.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdrawal of %s", ErrInvalidAmount, amount.StringFixed(2))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance.Sub(amount).LessThan(a.overdraft.Neg()) {
		return fmt.Errorf("%w: available balance $%s", ErrInsufficientFunds, a.available().StringFixed(2))
	}
	a.apply(amount.Neg(), Transaction{Amount: amount.Neg(), Kind: TxWithdrawal, Timestamp: time.Now()})
	return nil
}

// apply commits one balance delta together with its ledger entry.
// Caller holds a.mu.
func (a *Account) apply(delta decimal.Decimal, tx Transaction) {
	a.balance = a.balance.Add(delta)
	a.entries = append(a.entries, tx)
	a.lastActivity = tx.Timestamp
}

// Unlocked variants for callers that already hold a.mu.

func (a *Account) available() decimal.Decimal { return a.balance.Add(a.overdraft) }

func (a *Account) displayName() string {
	if a.nickname != "" {
		return a.nickname
	}
	return a.kind.Title()
}

func (a *Account) matchesNickname(identifier string) bool {
	return a.nickname != "" && strings.EqualFold(a.nickname, identifier)
}

func (a *Account) matchesKind(identifier string) bool {
	return strings.EqualFold(string(a.kind), identifier)
}
