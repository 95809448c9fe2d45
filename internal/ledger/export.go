package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const exportTimeLayout = "2006-01-02 15:04:05"

type exportRow struct {
	Date            string          `json:"date"`
	Account         string          `json:"account"`
	AccountType     Kind            `json:"account_type"`
	TransactionType TxKind          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
}

// Export renders a record list as a CSV or JSON document ready for file
// output. Any other format fails with ErrUnsupportedFormat.
func (m *TransactionManager) Export(records []Record, format string) (string, error) {
	switch strings.ToLower(format) {
	case "csv":
		return exportCSV(records)
	case "json":
		return exportJSON(records)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func exportCSV(records []Record) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"Date", "Account", "Account Type", "Transaction Type", "Amount"}); err != nil {
		return "", err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(exportTimeLayout),
			r.Account,
			string(r.AccountKind),
			string(r.Kind),
			r.Amount.String(),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func exportJSON(records []Record) (string, error) {
	rows := make([]exportRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, exportRow{
			Date:            r.Date.Format(exportTimeLayout),
			Account:         r.Account,
			AccountType:     r.AccountKind,
			TransactionType: r.Kind,
			Amount:          r.Amount,
		})
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
