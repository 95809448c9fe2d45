package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// AccountSource supplies the ordered account collection of one owner.
// TransferManager and TransactionManager only ever borrow accounts from a
// source; they never create or drop them.
type AccountSource interface {
	Accounts() []*Account
}

// Set is the default AccountSource: an ordered collection of one owner's
// accounts with collection-scope rules (nickname uniqueness, identifier
// resolution).
type Set struct {
	mu       sync.Mutex
	accounts []*Account
}

func NewSet(accounts ...*Account) (*Set, error) {
	s := &Set{}
	for _, a := range accounts {
		if err := s.Add(a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends an account, rejecting a nickname already used by another
// account of this owner (case-insensitive).
func (s *Set) Add(a *Account) error {
	nick := a.Nickname()
	s.mu.Lock()
	defer s.mu.Unlock()
	if nick != "" {
		for _, other := range s.accounts {
			if strings.EqualFold(other.Nickname(), nick) {
				return fmt.Errorf("%w: %q", ErrDuplicateNickname, nick)
			}
		}
	}
	s.accounts = append(s.accounts, a)
	return nil
}

// Accounts returns the collection in its fixed insertion order.
func (s *Set) Accounts() []*Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Resolve finds the account an identifier refers to. Nickname matches take
// precedence over kind matches; within each pass the first match in
// collection order wins.
func (s *Set) Resolve(identifier string) (*Account, bool) {
	return Resolve(s, identifier)
}

// Resolve is the identifier resolver shared by the managers. It scans the
// source twice: first for a case-insensitive nickname match, then for a
// kind match, so an account nicknamed "current" shadows the current account
// of another kind lookup.
func Resolve(src AccountSource, identifier string) (*Account, bool) {
	return resolve(src.Accounts(), identifier)
}

func resolve(accounts []*Account, identifier string) (*Account, bool) {
	for _, a := range accounts {
		if a.Nickname() != "" && strings.EqualFold(a.Nickname(), identifier) {
			return a, true
		}
	}
	for _, a := range accounts {
		if strings.EqualFold(string(a.Kind()), identifier) {
			return a, true
		}
	}
	return nil, false
}

// UpdateNickname renames the account identifier resolves to. The new
// nickname must be non-empty and not in use by any other account of this
// owner. The whole resolve-check-assign sequence runs under the collection
// lock so two concurrent renames cannot both claim one nickname.
func (s *Set) UpdateNickname(identifier, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("%w: nickname must not be empty", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := resolve(s.accounts, identifier)
	if !ok {
		return fmt.Errorf("%w: %q", ErrAccountNotFound, identifier)
	}
	for _, other := range s.accounts {
		if other != target && strings.EqualFold(other.Nickname(), nickname) {
			return fmt.Errorf("%w: %q", ErrDuplicateNickname, nickname)
		}
	}
	target.mu.Lock()
	defer target.mu.Unlock()
	target.nickname = nickname
	target.lastActivity = time.Now()
	return nil
}
