package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionManager is the read side: paginated history, conjunctive
// filtering, summaries and export over the same account collection the
// TransferManager mutates. It never writes.
type TransactionManager struct {
	src AccountSource
}

func NewTransactionManager(src AccountSource) *TransactionManager {
	return &TransactionManager{src: src}
}

// Record is one display row of transaction history.
type Record struct {
	Date        time.Time       `json:"date"`
	Account     string          `json:"account"`
	AccountKind Kind            `json:"account_type"`
	Kind        TxKind          `json:"transaction_type"`
	Amount      decimal.Decimal `json:"amount"`
}

// HistoryQuery selects and pages transaction history. Zero-value fields
// impose no constraint; Page defaults to 1 and PageSize to 50.
type HistoryQuery struct {
	Account  string
	Start    time.Time
	End      time.Time
	Page     int
	PageSize int
}

// HistoryPage is one page of history plus pagination metadata. Err is set,
// with zero counts, when the account identifier does not resolve; the page
// itself is still a usable value.
type HistoryPage struct {
	Records     []Record `json:"transactions"`
	TotalCount  int      `json:"total_count"`
	Page        int      `json:"page"`
	PageSize    int      `json:"page_size"`
	TotalPages  int      `json:"total_pages"`
	HasNext     bool     `json:"has_next"`
	HasPrevious bool     `json:"has_previous"`
	Err         string   `json:"error,omitempty"`
}

// History builds one record per ledger entry across the selected accounts,
// applies the date window, sorts newest first and pages the result.
//
// The date window is inclusive on both sides at day granularity: a record
// on any instant of End's calendar day passes. The original system kept
// this end-of-day slack implicitly; here it is deliberate and tested.
func (m *TransactionManager) History(q HistoryQuery) HistoryPage {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 50
	}

	records, err := m.collect(q.Account)
	if err != nil {
		return HistoryPage{
			Page:     q.Page,
			PageSize: q.PageSize,
			Err:      err.Error(),
		}
	}

	records = filterByDate(records, q.Start, q.End)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})

	total := len(records)
	totalPages := 0
	if total > 0 {
		totalPages = (total + q.PageSize - 1) / q.PageSize
	}

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return HistoryPage{
		Records:     records[start:end],
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  totalPages,
		HasNext:     q.Page < totalPages,
		HasPrevious: q.Page > 1,
	}
}

// Records returns every record for the identified account, or for all
// accounts when identifier is empty, newest first and without pagination.
// Export paths use this so no row is ever dropped by a page cap.
func (m *TransactionManager) Records(identifier string) ([]Record, error) {
	records, err := m.collect(identifier)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records, nil
}

// Filters narrows an already-built record list. Nil or empty fields impose
// no constraint; set fields combine conjunctively. Amount bounds compare
// against the absolute amount and are inclusive.
type Filters struct {
	Kinds        []TxKind
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
	AccountKinds []Kind
}

func (m *TransactionManager) Filter(records []Record, f Filters) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if len(f.Kinds) > 0 && !containsTxKind(f.Kinds, r.Kind) {
			continue
		}
		abs := r.Amount.Abs()
		if f.MinAmount != nil && abs.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && abs.GreaterThan(*f.MaxAmount) {
			continue
		}
		if len(f.AccountKinds) > 0 && !containsKind(f.AccountKinds, r.AccountKind) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DateRange spans the oldest and newest record of a summary.
type DateRange struct {
	Min time.Time `json:"min_date"`
	Max time.Time `json:"max_date"`
}

// Summary aggregates the selected record set.
type Summary struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals  decimal.Decimal `json:"total_withdrawals"`
	TotalTransfersIn  decimal.Decimal `json:"total_transfers_in"`
	TotalTransfersOut decimal.Decimal `json:"total_transfers_out"`
	NetChange         decimal.Decimal `json:"net_change"`
	DateRange         *DateRange      `json:"date_range"`
}

// Summary totals deposits, withdrawals and both transfer directions for the
// identified account, or for all accounts when identifier is empty. An
// unresolvable identifier yields the empty summary.
func (m *TransactionManager) Summary(identifier string) Summary {
	records, err := m.collect(identifier)
	s := Summary{}
	if err != nil || len(records) == 0 {
		return s
	}

	rng := DateRange{Min: records[0].Date, Max: records[0].Date}
	for _, r := range records {
		s.TotalTransactions++
		switch {
		case r.Kind == TxDeposit:
			s.TotalDeposits = s.TotalDeposits.Add(r.Amount)
		case r.Kind == TxWithdrawal:
			s.TotalWithdrawals = s.TotalWithdrawals.Add(r.Amount.Abs())
		case r.Kind == TxTransfer && r.Amount.Sign() > 0:
			s.TotalTransfersIn = s.TotalTransfersIn.Add(r.Amount)
		case r.Kind == TxTransfer && r.Amount.Sign() < 0:
			s.TotalTransfersOut = s.TotalTransfersOut.Add(r.Amount.Abs())
		}
		if r.Date.Before(rng.Min) {
			rng.Min = r.Date
		}
		if r.Date.After(rng.Max) {
			rng.Max = r.Date
		}
	}
	s.NetChange = s.TotalDeposits.Add(s.TotalTransfersIn).Sub(s.TotalWithdrawals).Sub(s.TotalTransfersOut)
	s.DateRange = &rng
	return s
}

// collect snapshots one record per ledger entry across the selected
// accounts, holding every selected account's read lock so an in-flight
// transfer is seen with both legs or neither.
func (m *TransactionManager) collect(identifier string) ([]Record, error) {
	selected := m.src.Accounts()
	if identifier != "" {
		a, ok := Resolve(m.src, identifier)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, identifier)
		}
		selected = []*Account{a}
	}

	unlock := readLockAll(selected)
	defer unlock()
	var records []Record
	for _, a := range selected {
		for _, tx := range a.entries {
			records = append(records, Record{
				Date:        tx.Timestamp,
				Account:     a.displayName(),
				AccountKind: a.kind,
				Kind:        tx.Kind,
				Amount:      tx.Amount,
			})
		}
	}
	return records, nil
}

func filterByDate(records []Record, start, end time.Time) []Record {
	if start.IsZero() && end.IsZero() {
		return records
	}
	var bound time.Time
	if !end.IsZero() {
		y, mo, d := end.Date()
		bound = time.Date(y, mo, d, 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && !r.Date.Before(bound) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsTxKind(kinds []TxKind, k TxKind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
