// Package accounts stores the users the auth pages sign in and register.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/authform/pantry/text"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrExists is returned by Register when the email is already taken.
	ErrExists = errors.New("accounts: email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("accounts: invalid email or password")
)

// Account is a registered user. PasswordHash is a bcrypt hash.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAccount is the input to Register. Phone holds normalized digits.
type NewAccount struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Authenticator checks sign-in credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Account, error)
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in NewAccount) (Account, error)
}

// Store is what the auth feature needs from an account backend.
type Store interface {
	Authenticator
	Registrar
	Close() error
}

// Key is the lookup key for an email: case and diacritics folded.
func Key(email string) string {
	return text.Fold(email)
}

// hasher builds accounts and checks passwords with a fixed bcrypt cost.
type hasher struct {
	cost  int
	dummy []byte
}

func newHasher(cost int) hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Unknown emails are compared against this hash so they cost as much
	// time as a wrong password.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("authform-no-such-account"), cost)
	return hasher{cost: cost, dummy: dummy}
}

func (h hasher) build(in NewAccount) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	return Account{
		ID:           ulid.Make().String(),
		Name:         text.CollapseSpace(in.Name),
		Email:        Key(in.Email),
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (h hasher) check(acct *Account, password string) error {
	hash := h.dummy
	if acct != nil {
		hash = acct.PasswordHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || acct == nil {
		return ErrInvalidCredentials
	}
	return nil
}
