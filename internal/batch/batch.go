// Package batch runs files of banking operations against one owner's
// account set. A bad row never aborts the run: it becomes a failed result
// carrying its line number, and later operations still execute.
package batch

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/ledger"
)

// OpType enumerates the supported batch operations.
type OpType string

const (
	OpDeposit        OpType = "deposit"
	OpWithdraw       OpType = "withdraw"
	OpTransfer       OpType = "transfer"
	OpCreateAccount  OpType = "create_account"
	OpUpdateNickname OpType = "update_nickname"
)

func validOpType(t OpType) bool {
	switch t {
	case OpDeposit, OpWithdraw, OpTransfer, OpCreateAccount, OpUpdateNickname:
		return true
	}
	return false
}

// Operation is one parsed batch row.
type Operation struct {
	Type           OpType
	Account        string
	Amount         decimal.Decimal
	ToAccount      string
	Memo           string
	Nickname       string
	OverdraftLimit decimal.Decimal
	Line           int

	// ParseErr marks a row that could not be parsed; such an operation
	// always fails at execution time with this message.
	ParseErr string
}

// Status of one executed operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type Result struct {
	Op      Operation
	Status  Status
	Message string
}

// Report summarizes one batch run.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []Result
}

// Runner applies operations in order against a ledger set.
type Runner struct {
	set       *ledger.Set
	transfers *ledger.TransferManager
}

func NewRunner(set *ledger.Set, transfers *ledger.TransferManager) *Runner {
	return &Runner{set: set, transfers: transfers}
}

func (r *Runner) Execute(ops []Operation) Report {
	rep := Report{Total: len(ops)}
	for _, op := range ops {
		res := r.run(op)
		rep.Results = append(rep.Results, res)
		if res.Status == StatusSuccess {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
	}
	return rep
}

func (r *Runner) run(op Operation) Result {
	if op.ParseErr != "" {
		return fail(op, op.ParseErr)
	}

	switch op.Type {
	case OpDeposit:
		a, ok := r.set.Resolve(op.Account)
		if !ok {
			return fail(op, fmt.Sprintf("account %q not found", op.Account))
		}
		if err := a.Deposit(op.Amount); err != nil {
			return fail(op, err.Error())
		}
		return succeed(op, fmt.Sprintf("deposited %s into %s", op.Amount.StringFixed(2), a.DisplayName()))

	case OpWithdraw:
		a, ok := r.set.Resolve(op.Account)
		if !ok {
			return fail(op, fmt.Sprintf("account %q not found", op.Account))
		}
		if err := a.Withdraw(op.Amount); err != nil {
			return fail(op, err.Error())
		}
		return succeed(op, fmt.Sprintf("withdrew %s from %s", op.Amount.StringFixed(2), a.DisplayName()))

	case OpTransfer:
		receipt, err := r.transfers.Execute(op.Account, op.ToAccount, op.Amount, op.Memo)
		if err != nil {
			return fail(op, err.Error())
		}
		return succeed(op, receipt.Message)

	case OpCreateAccount:
		kind, err := ledger.ParseKind(op.Account)
		if err != nil {
			return fail(op, err.Error())
		}
		acct := ledger.NewAccount(kind, op.Amount, op.OverdraftLimit, op.Nickname)
		if err := r.set.Add(acct); err != nil {
			return fail(op, err.Error())
		}
		return succeed(op, fmt.Sprintf("created %s account", kind))

	case OpUpdateNickname:
		if err := r.set.UpdateNickname(op.Account, op.Nickname); err != nil {
			return fail(op, err.Error())
		}
		return succeed(op, fmt.Sprintf("renamed %q to %q", op.Account, op.Nickname))
	}

	return fail(op, fmt.Sprintf("unsupported operation type %q", op.Type))
}

func fail(op Operation, msg string) Result {
	return Result{Op: op, Status: StatusFailed, Message: msg}
}

func succeed(op Operation, msg string) Result {
	return Result{Op: op, Status: StatusSuccess, Message: msg}
}
