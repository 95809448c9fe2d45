package ledger

import (
	"strings"

	"github.com/google/uuid"
)

// TransferIDGenerator produces the short correlation IDs stamped on both
// legs of a transfer, in the form "TXF-" plus 8 uppercase hex characters.
type TransferIDGenerator struct {
	candidate func() string
}

func NewTransferIDGenerator() *TransferIDGenerator {
	return &TransferIDGenerator{candidate: func() string {
		return "TXF-" + strings.ToUpper(uuid.NewString()[:8])
	}}
}

// Next returns a candidate not already taken. A collision forces a fresh
// candidate; an ID is never silently reused.
func (g *TransferIDGenerator) Next(taken func(string) bool) string {
	for {
		id := g.candidate()
		if !taken(id) {
			return id
		}
	}
}
