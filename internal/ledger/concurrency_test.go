package ledger

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// Hammers transfers in both directions while readers snapshot history, then
// checks conservation of money, the overdraft floor and transfer pairing.
func TestConcurrentTransfersConserveMoney(t *testing.T) {
	savings := NewAccount(KindSavings, d(10000), decimal.Zero, "")
	current := NewAccount(KindCurrent, d(10000), d(500), "")
	salary := NewAccount(KindSalary, d(10000), decimal.Zero, "")
	s, err := NewSet(savings, current, salary)
	if err != nil {
		t.Fatal(err)
	}
	m := NewTransferManager(s)
	h := NewTransactionManager(s)

	const (
		workers      = 8
		perWorker    = 50
		totalInitial = 30000
	)

	routes := [][2]string{
		{"savings", "current"},
		{"current", "savings"},
		{"salary", "current"},
		{"current", "salary"},
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			route := routes[w%len(routes)]
			for i := 0; i < perWorker; i++ {
				// Insufficient funds is a legitimate outcome under
				// contention; anything else is a bug.
				if _, err := m.Execute(route[0], route[1], d(7), ""); err != nil {
					if !errors.Is(err, ErrInsufficientFunds) {
						t.Errorf("transfer %s->%s: %v", route[0], route[1], err)
						return
					}
				}
			}
		}(w)
	}

	// Readers run alongside the writers; every snapshot must balance.
	done := make(chan struct{})
	var readerWG sync.WaitGroup
	for r := 0; r < 4; r++ {
		readerWG.Add(1)
		go func() {
			defer readerWG.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				sum := h.Summary("")
				in, out := sum.TotalTransfersIn, sum.TotalTransfersOut
				if !in.Equal(out) {
					t.Errorf("snapshot saw unbalanced transfers: in=%s out=%s", in, out)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	readerWG.Wait()

	total := savings.Balance().Add(current.Balance()).Add(salary.Balance())
	if !total.Equal(d(totalInitial)) {
		t.Fatalf("money not conserved: total=%s want=%d", total, totalInitial)
	}

	for _, a := range s.Accounts() {
		if a.Balance().Add(a.OverdraftLimit()).Sign() < 0 {
			t.Fatalf("%s breached its overdraft floor: balance=%s limit=%s",
				a.DisplayName(), a.Balance(), a.OverdraftLimit())
		}
	}

	// Every transfer ID appears on exactly two legs, one of them outgoing.
	legs := map[string][]Transaction{}
	for _, a := range s.Accounts() {
		for _, tx := range a.Ledger() {
			if tx.IsTransfer() {
				legs[tx.TransferID] = append(legs[tx.TransferID], tx)
			}
		}
	}
	for id, pair := range legs {
		if len(pair) != 2 {
			t.Fatalf("transfer %s has %d legs", id, len(pair))
		}
		if pair[0].IsOutgoing == pair[1].IsOutgoing {
			t.Fatalf("transfer %s legs point the same way", id)
		}
		if !pair[0].Amount.Abs().Equal(pair[1].Amount.Abs()) {
			t.Fatalf("transfer %s legs disagree on amount: %s vs %s",
				id, pair[0].Amount, pair[1].Amount)
		}
	}
}
