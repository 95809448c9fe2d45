package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCSV reads a batch file with headers:
// operation_type,account,amount,to_account,memo,nickname,overdraft_limit
// Blank operation types and rows starting with '#' are skipped. Rows that
// fail to parse are returned as operations with ParseErr set.
func ParseCSV(r io.Reader) ([]Operation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Comment lines are bare text, not full-width rows; reading them with a
	// fixed field count would reject the file before the skip below runs.
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := toIndex(headers)
	for _, k := range []string{"operation_type", "account"} {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("missing column: %s", k)
		}
	}

	var ops []Operation
	line := 1 // header is line 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		typ := strings.ToLower(get("operation_type"))
		if typ == "" || strings.HasPrefix(typ, "#") {
			continue
		}

		op, err := buildOperation(typ, get, line)
		if err != nil {
			ops = append(ops, Operation{Type: OpType(typ), Line: line, ParseErr: err.Error()})
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func buildOperation(typ string, get func(string) string, line int) (Operation, error) {
	op := Operation{
		Type:    OpType(typ),
		Account: get("account"),
		Memo:    get("memo"),
		Line:    line,
	}
	if !validOpType(op.Type) {
		return Operation{}, fmt.Errorf("unsupported operation type: %s", typ)
	}

	if s := get("amount"); s != "" {
		amt, err := decimal.NewFromString(s)
		if err != nil {
			return Operation{}, fmt.Errorf("invalid amount: %s", s)
		}
		op.Amount = amt
	}

	switch op.Type {
	case OpTransfer:
		op.ToAccount = get("to_account")
		if op.ToAccount == "" {
			return Operation{}, fmt.Errorf("transfer requires to_account")
		}
	case OpCreateAccount:
		op.Nickname = get("nickname")
		if s := get("overdraft_limit"); s != "" {
			od, err := decimal.NewFromString(s)
			if err != nil {
				return Operation{}, fmt.Errorf("invalid overdraft_limit: %s", s)
			}
			op.OverdraftLimit = od
		}
	case OpUpdateNickname:
		op.Nickname = get("nickname")
		if op.Nickname == "" {
			return Operation{}, fmt.Errorf("update_nickname requires nickname")
		}
	}
	return op, nil
}

func toIndex(headers []string) map[string]int {
	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.TrimSpace(h)] = i
	}
	return col
}

type jsonOp struct {
	OperationType  string          `json:"operation_type"`
	Account        string          `json:"account"`
	Amount         decimal.Decimal `json:"amount"`
	ToAccount      string          `json:"to_account"`
	Memo           string          `json:"memo"`
	Nickname       string          `json:"nickname"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
}

// ParseJSON reads a batch file holding a JSON array of operation objects
// with the same fields as the CSV columns.
func ParseJSON(r io.Reader) ([]Operation, error) {
	var raw []jsonOp
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode batch json: %w", err)
	}

	var ops []Operation
	for i, j := range raw {
		line := i + 1
		op := Operation{
			Type:           OpType(strings.ToLower(strings.TrimSpace(j.OperationType))),
			Account:        strings.TrimSpace(j.Account),
			Amount:         j.Amount,
			ToAccount:      strings.TrimSpace(j.ToAccount),
			Memo:           j.Memo,
			Nickname:       strings.TrimSpace(j.Nickname),
			OverdraftLimit: j.OverdraftLimit,
			Line:           line,
		}
		switch {
		case !validOpType(op.Type):
			op.ParseErr = fmt.Sprintf("unsupported operation type: %s", j.OperationType)
		case op.Type == OpTransfer && op.ToAccount == "":
			op.ParseErr = "transfer requires to_account"
		case op.Type == OpUpdateNickname && op.Nickname == "":
			op.ParseErr = "update_nickname requires nickname"
		}
		ops = append(ops, op)
	}
	return ops, nil
}
