package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntry(a *Account, ts time.Time, kind TxKind, amount decimal.Decimal) {
	a.mu.Lock()
	a.entries = append(a.entries, Transaction{Amount: amount, Kind: kind, Timestamp: ts})
	a.mu.Unlock()
}

var day0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func seededManager(t *testing.T, n int) (*TransactionManager, *Account) {
	t.Helper()
	a := NewAccount(KindSavings, d(0), decimal.Zero, "")
	for i := 0; i < n; i++ {
		seedEntry(a, day0.AddDate(0, 0, i), TxDeposit, d(int64(i+1)))
	}
	s, err := NewSet(a)
	require.NoError(t, err)
	return NewTransactionManager(s), a
}

func TestHistoryPagesReassembleFullOrdering(t *testing.T) {
	m, _ := seededManager(t, 7)

	full := m.History(HistoryQuery{PageSize: 100})
	require.Equal(t, 7, full.TotalCount)
	require.Len(t, full.Records, 7)
	for i := 1; i < len(full.Records); i++ {
		assert.False(t, full.Records[i].Date.After(full.Records[i-1].Date))
	}

	var joined []Record
	for page := 1; ; page++ {
		p := m.History(HistoryQuery{Page: page, PageSize: 3})
		joined = append(joined, p.Records...)
		assert.Equal(t, page > 1, p.HasPrevious)
		if !p.HasNext {
			assert.Equal(t, p.TotalPages, page)
			break
		}
	}
	assert.Equal(t, full.Records, joined)
}

func TestHistoryPageBeyondEnd(t *testing.T) {
	m, _ := seededManager(t, 4)

	p := m.History(HistoryQuery{Page: 5, PageSize: 3})
	assert.Empty(t, p.Records)
	assert.Equal(t, 4, p.TotalCount)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrevious)
}

func TestHistoryEmptyLedger(t *testing.T) {
	m, _ := seededManager(t, 0)

	p := m.History(HistoryQuery{})
	assert.Equal(t, 0, p.TotalCount)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.Empty(t, p.Err)
}

func TestHistoryDateWindowIncludesWholeEndDay(t *testing.T) {
	m, a := seededManager(t, 6) // entries on day0 .. day5, noon each

	// Late on the last admitted day.
	seedEntry(a, day0.AddDate(0, 0, 4).Add(11*time.Hour+59*time.Minute), TxDeposit, d(99))

	p := m.History(HistoryQuery{
		Start: day0.AddDate(0, 0, 2).Truncate(24 * time.Hour),
		End:   day0.AddDate(0, 0, 4).Truncate(24 * time.Hour),
	})
	// day2, day3, day4 plus the 23:59 entry on day4.
	assert.Equal(t, 4, p.TotalCount)
	for _, r := range p.Records {
		assert.False(t, r.Date.Before(day0.AddDate(0, 0, 2).Truncate(24*time.Hour)))
		assert.True(t, r.Date.Before(day0.AddDate(0, 0, 5).Truncate(24*time.Hour)))
	}
}

func TestHistoryUnknownAccount(t *testing.T) {
	m, _ := seededManager(t, 3)

	p := m.History(HistoryQuery{Account: "salary"})
	assert.NotEmpty(t, p.Err)
	assert.Zero(t, p.TotalCount)
	assert.Zero(t, p.TotalPages)
	assert.Empty(t, p.Records)
}

func TestRecordsReturnsEveryEntry(t *testing.T) {
	a := NewAccount(KindSavings, d(0), decimal.Zero, "")
	const n = 10050
	for i := 0; i < n; i++ {
		seedEntry(a, day0.Add(time.Duration(i)*time.Second), TxDeposit, d(1))
	}
	s, err := NewSet(a)
	require.NoError(t, err)
	m := NewTransactionManager(s)

	records, err := m.Records("")
	require.NoError(t, err)
	require.Len(t, records, n, "no page cap may drop rows")
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Date.After(records[i-1].Date))
	}

	_, err = m.Records("salary")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestFilter(t *testing.T) {
	records := []Record{
		{Kind: TxDeposit, Amount: d(100), AccountKind: KindSavings},
		{Kind: TxWithdrawal, Amount: d(-250), AccountKind: KindSavings},
		{Kind: TxTransfer, Amount: d(250), AccountKind: KindCurrent},
		{Kind: TxTransfer, Amount: d(-400), AccountKind: KindCurrent},
	}
	m := NewTransactionManager(staticSource{})

	t.Run("by transaction kind", func(t *testing.T) {
		out := m.Filter(records, Filters{Kinds: []TxKind{TxTransfer}})
		assert.Len(t, out, 2)
	})

	t.Run("amount bounds are absolute and inclusive", func(t *testing.T) {
		lo, hi := d(250), d(250)
		out := m.Filter(records, Filters{MinAmount: &lo, MaxAmount: &hi})
		assert.Len(t, out, 2, "both the -250 withdrawal and the 250 transfer match")
	})

	t.Run("by account kind", func(t *testing.T) {
		out := m.Filter(records, Filters{AccountKinds: []Kind{KindCurrent}})
		assert.Len(t, out, 2)
	})

	t.Run("conjunction", func(t *testing.T) {
		lo := d(300)
		out := m.Filter(records, Filters{
			Kinds:        []TxKind{TxTransfer},
			MinAmount:    &lo,
			AccountKinds: []Kind{KindCurrent},
		})
		require.Len(t, out, 1)
		assert.True(t, out[0].Amount.Equal(d(-400)))
	})

	t.Run("no constraints", func(t *testing.T) {
		assert.Len(t, m.Filter(records, Filters{}), 4)
	})
}

func TestSummary(t *testing.T) {
	a := NewAccount(KindSavings, d(0), decimal.Zero, "")
	seedEntry(a, day0, TxDeposit, d(500))
	seedEntry(a, day0.AddDate(0, 0, 1), TxWithdrawal, d(-200))
	seedEntry(a, day0.AddDate(0, 0, 2), TxTransfer, d(300))
	seedEntry(a, day0.AddDate(0, 0, 3), TxTransfer, d(-100))
	s, err := NewSet(a)
	require.NoError(t, err)
	m := NewTransactionManager(s)

	sum := m.Summary("")
	assert.Equal(t, 4, sum.TotalTransactions)
	assert.True(t, sum.TotalDeposits.Equal(d(500)))
	assert.True(t, sum.TotalWithdrawals.Equal(d(200)), "withdrawals reported as a positive total")
	assert.True(t, sum.TotalTransfersIn.Equal(d(300)))
	assert.True(t, sum.TotalTransfersOut.Equal(d(100)))
	assert.True(t, sum.NetChange.Equal(d(500)), "500 + 300 - 200 - 100")
	require.NotNil(t, sum.DateRange)
	assert.True(t, sum.DateRange.Min.Equal(day0))
	assert.True(t, sum.DateRange.Max.Equal(day0.AddDate(0, 0, 3)))
}

func TestSummaryEmptyAndUnknown(t *testing.T) {
	m, _ := seededManager(t, 0)

	sum := m.Summary("")
	assert.Zero(t, sum.TotalTransactions)
	assert.Nil(t, sum.DateRange)

	sum = m.Summary("salary")
	assert.Zero(t, sum.TotalTransactions)
	assert.Nil(t, sum.DateRange)
}

func TestExportCSV(t *testing.T) {
	m := NewTransactionManager(staticSource{})
	records := []Record{{
		Date:        time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC),
		Account:     "Rainy Day",
		AccountKind: KindSavings,
		Kind:        TxDeposit,
		Amount:      decimal.RequireFromString("120.50"),
	}}

	out, err := m.Export(records, "csv")
	require.NoError(t, err)
	want := "Date,Account,Account Type,Transaction Type,Amount\n" +
		"2024-03-01 09:30:00,Rainy Day,savings,deposit,120.5\n"
	assert.Equal(t, want, out)
}

func TestExportJSON(t *testing.T) {
	m := NewTransactionManager(staticSource{})
	records := []Record{{
		Date:        time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC),
		Account:     "Savings",
		AccountKind: KindSavings,
		Kind:        TxWithdrawal,
		Amount:      d(-40),
	}}

	out, err := m.Export(records, "JSON")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-01 09:30:00", rows[0]["date"])
	assert.Equal(t, "withdrawal", rows[0]["transaction_type"])
}

func TestExportUnsupportedFormat(t *testing.T) {
	m := NewTransactionManager(staticSource{})
	_, err := m.Export(nil, "xml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
