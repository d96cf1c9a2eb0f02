package accounts

import (
	"context"
	"sync"
)

// MemoryStore keeps accounts in process memory. Accounts vanish on
// restart; it backs development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byKey  map[string]Account
	hasher hasher
}

// NewMemoryStore returns an empty store hashing with the given bcrypt cost
// (out-of-range values use bcrypt.DefaultCost).
func NewMemoryStore(cost int) *MemoryStore {
	return &MemoryStore{
		byKey:  make(map[string]Account),
		hasher: newHasher(cost),
	}
}

// Register adds an account, or returns ErrExists if the folded email is
// taken.
func (s *MemoryStore) Register(ctx context.Context, in NewAccount) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	key := Key(in.Email)

	s.mu.RLock()
	_, taken := s.byKey[key]
	s.mu.RUnlock()
	if taken {
		return Account{}, ErrExists
	}

	acct, err := s.hasher.build(in)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byKey[key]; taken {
		return Account{}, ErrExists
	}
	s.byKey[key] = acct
	return acct, nil
}

// Authenticate returns the account for email if password matches.
func (s *MemoryStore) Authenticate(ctx context.Context, email, password string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.RLock()
	acct, ok := s.byKey[Key(email)]
	s.mu.RUnlock()

	var p *Account
	if ok {
		p = &acct
	}
	if err := s.hasher.check(p, password); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Len returns the number of accounts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
