package batch

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/ledger"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newRunner(t *testing.T) (*Runner, *ledger.Set) {
	t.Helper()
	set, err := ledger.NewSet(
		ledger.NewAccount(ledger.KindSavings, d(1000), decimal.Zero, ""),
		ledger.NewAccount(ledger.KindCurrent, d(500), d(200), ""),
	)
	require.NoError(t, err)
	return NewRunner(set, ledger.NewTransferManager(set)), set
}

const sampleCSV = `operation_type,account,amount,to_account,memo,nickname,overdraft_limit
deposit,savings,100,,,,
# comment row is skipped,,,,,,
withdraw,current,50,,,,
transfer,savings,25,current,rent,,
deposit,savings,not-a-number,,,,
create_account,salary,2000,,,Payday,
update_nickname,savings,,,,Rainy Day,
`

func TestParseCSV(t *testing.T) {
	ops, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, ops, 6, "comment row dropped, bad row kept with ParseErr")

	assert.Equal(t, OpDeposit, ops[0].Type)
	assert.Equal(t, "savings", ops[0].Account)
	assert.True(t, ops[0].Amount.Equal(d(100)))
	assert.Equal(t, 2, ops[0].Line)

	assert.Equal(t, OpTransfer, ops[2].Type)
	assert.Equal(t, "current", ops[2].ToAccount)
	assert.Equal(t, "rent", ops[2].Memo)

	bad := ops[3]
	assert.NotEmpty(t, bad.ParseErr)
	assert.Contains(t, bad.ParseErr, "invalid amount")
	assert.Equal(t, 6, bad.Line)

	assert.Equal(t, OpCreateAccount, ops[4].Type)
	assert.Equal(t, "Payday", ops[4].Nickname)

	assert.Equal(t, OpUpdateNickname, ops[5].Type)
	assert.Equal(t, "Rainy Day", ops[5].Nickname)
}

func TestParseCSVUnpaddedCommentLine(t *testing.T) {
	in := "operation_type,account,amount\n" +
		"# monthly batch\n" +
		"deposit,savings,100\n" +
		"# another note\n" +
		"withdraw,savings,25\n"

	ops, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, OpDeposit, ops[0].Type)
	assert.Equal(t, 3, ops[0].Line, "comment lines still count toward line numbers")
	assert.Equal(t, OpWithdraw, ops[1].Type)
	assert.Equal(t, 5, ops[1].Line)
}

func TestParseCSVMissingColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("account,amount\nsavings,10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation_type")
}

func TestParseCSVTransferWithoutDestination(t *testing.T) {
	in := "operation_type,account,amount,to_account\ntransfer,savings,10,\n"
	ops, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Contains(t, ops[0].ParseErr, "to_account")
}

func TestParseJSON(t *testing.T) {
	in := `[
		{"operation_type": "Deposit", "account": "savings", "amount": "100"},
		{"operation_type": "transfer", "account": "savings", "amount": 25, "to_account": "current"},
		{"operation_type": "freeze", "account": "savings"}
	]`
	ops, err := ParseJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, OpDeposit, ops[0].Type, "operation type is case-insensitive")
	assert.True(t, ops[0].Amount.Equal(d(100)))
	assert.Equal(t, OpTransfer, ops[1].Type)
	assert.Empty(t, ops[1].ParseErr)
	assert.Contains(t, ops[2].ParseErr, "unsupported operation type")
}

func TestParseJSONRejectsNonArray(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"operation_type": "deposit"}`))
	require.Error(t, err)
}

func TestExecuteReportsPerOperation(t *testing.T) {
	r, set := newRunner(t)

	ops, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rep := r.Execute(ops)
	assert.Equal(t, 6, rep.Total)
	assert.Equal(t, 5, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Results, 6)

	for _, res := range rep.Results {
		if res.Op.ParseErr != "" {
			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, res.Op.ParseErr, res.Message)
		}
	}

	// deposit 100, transfer out 25, nickname applied.
	savings, ok := set.Resolve("Rainy Day")
	require.True(t, ok)
	assert.True(t, savings.Balance().Equal(d(1075)))

	// withdraw 50, transfer in 25.
	current, ok := set.Resolve("current")
	require.True(t, ok)
	assert.True(t, current.Balance().Equal(d(475)))

	// create_account landed.
	salary, ok := set.Resolve("Payday")
	require.True(t, ok)
	assert.Equal(t, ledger.KindSalary, salary.Kind())
	assert.True(t, salary.Balance().Equal(d(2000)))
}

func TestExecuteFailuresLeaveNoPartialEffect(t *testing.T) {
	r, set := newRunner(t)

	rep := r.Execute([]Operation{
		{Type: OpTransfer, Account: "current", ToAccount: "savings", Amount: d(10000), Line: 2},
		{Type: OpWithdraw, Account: "salary", Amount: d(10), Line: 3},
		{Type: OpDeposit, Account: "savings", Amount: d(-5), Line: 4},
	})
	assert.Equal(t, 3, rep.Failed)
	assert.Zero(t, rep.Succeeded)

	savings, _ := set.Resolve("savings")
	current, _ := set.Resolve("current")
	assert.True(t, savings.Balance().Equal(d(1000)))
	assert.True(t, current.Balance().Equal(d(500)))
	assert.Empty(t, savings.Ledger())
	assert.Empty(t, current.Ledger())
}
