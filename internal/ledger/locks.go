package ledger

import (
	"bytes"
	"sort"
)

// sortByID orders accounts by their stable identity. Every multi-account
// lock acquisition walks this order, which is what keeps two concurrent
// transfers over overlapping accounts from deadlocking.
func sortByID(accounts []*Account) []*Account {
	out := make([]*Account, len(accounts))
	copy(out, accounts)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].id[:], out[j].id[:]) < 0
	})
	return out
}

// readLockAll read-locks every account in ID order. A reader holding all
// locks observes either both legs of an in-flight transfer or neither.
func readLockAll(accounts []*Account) (unlock func()) {
	ordered := sortByID(accounts)
	for _, a := range ordered {
		a.mu.RLock()
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			ordered[i].mu.RUnlock()
		}
	}
}

// lockForTransfer write-locks the two involved accounts and read-locks the
// rest of the collection, all in ID order. The read locks cover the
// transfer-ID uniqueness scan across every ledger.
func lockForTransfer(accounts []*Account, from, to *Account) (unlock func()) {
	ordered := sortByID(accounts)
	for _, a := range ordered {
		if a == from || a == to {
			a.mu.Lock()
		} else {
			a.mu.RLock()
		}
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			a := ordered[i]
			if a == from || a == to {
				a.mu.Unlock()
			} else {
				a.mu.RUnlock()
			}
		}
	}
}
