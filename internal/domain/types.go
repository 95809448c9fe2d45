package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	Kind           string          `json:"kind"`
	Balance        decimal.Decimal `json:"balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	Nickname       string          `json:"nickname"`
}

type AccountResponse struct {
	AccountID        uuid.UUID       `json:"account_id"`
	Kind             string          `json:"kind"`
	Nickname         string          `json:"nickname,omitempty"`
	DisplayName      string          `json:"display_name"`
	Balance          decimal.Decimal `json:"balance"`
	OverdraftLimit   decimal.Decimal `json:"overdraft_limit"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CreatedAt        time.Time       `json:"created_at"`
	LastActivity     time.Time       `json:"last_activity"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

type TransferRequest struct {
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
}

type TransferResponse struct {
	TransferID  string          `json:"transfer_id"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Message     string          `json:"message"`
}

// TransferRecord is the wire view of one transfer ledger entry.
type TransferRecord struct {
	TransferID  string          `json:"transfer_id"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	IsOutgoing  bool            `json:"is_outgoing"`
}

type BatchOperationResult struct {
	Line          int    `json:"line"`
	OperationType string `json:"operation_type"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type BatchReport struct {
	RunID     string                 `json:"run_id"`
	Total     int                    `json:"total"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Results   []BatchOperationResult `json:"results"`
}

type AuditVerifyResponse struct {
	Events int    `json:"events"`
	Head   string `json:"head"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}
