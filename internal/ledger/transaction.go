package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind classifies a ledger entry.
type TxKind string

const (
	TxDeposit    TxKind = "deposit"
	TxWithdrawal TxKind = "withdrawal"
	TxTransfer   TxKind = "transfer"
)

// Transaction is one immutable ledger entry. Amounts are signed: deposits
// and incoming transfers are positive, withdrawals and outgoing transfers
// negative. Entries are appended to exactly one account's ledger and never
// changed afterwards.
type Transaction struct {
	Amount    decimal.Decimal
	Kind      TxKind
	Timestamp time.Time

	// Set only when Kind == TxTransfer.
	TransferID  string
	FromAccount string
	ToAccount   string
	Memo        string
	IsOutgoing  bool
}

// IsTransfer reports whether the entry is one leg of a two-sided transfer.
func (t Transaction) IsTransfer() bool { return t.Kind == TxTransfer }
