package ledger

import (
	"fmt"
	"strings"
)

// Kind identifies the product type of an account.
type Kind string

const (
	KindSavings Kind = "savings"
	KindCurrent Kind = "current"
	KindSalary  Kind = "salary"
)

// ParseKind normalizes and validates an account kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindSavings, KindCurrent, KindSalary:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown account kind %q", ErrValidation, s)
}

// SupportsOverdraft reports whether accounts of this kind may carry a
// negative balance up to an overdraft limit.
func (k Kind) SupportsOverdraft() bool { return k == KindCurrent }

// Title returns the capitalized form used for display.
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}
