package db

import (
	"crypto/subtle"
	"errors"
	"fmt"

	app "github.com/etitcombe/workjournal"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore implements the Authenticator interface for the single admin
// account configured at startup.
type AdminStore struct {
	email        string
	passwordHash []byte
}

// NewAdminStore creates and returns a new instance of an AdminStore. When
// passwordHash is empty, defaultPassword is hashed and used instead.
func NewAdminStore(email, passwordHash, defaultPassword string) (*AdminStore, error) {
	if email == "" {
		return nil, errors.New("admin email required")
	}
	if passwordHash == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash default password: %w", err)
		}
		passwordHash = string(hashed)
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &AdminStore{email: email, passwordHash: []byte(passwordHash)}, nil
}

// Authenticate checks email and password against the admin account. Any
// mismatch returns app.ErrInvalidCredentials.
func (s *AdminStore) Authenticate(email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1

	// Compare even on a wrong email so both failures cost the same.
	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	switch {
	case err == nil && emailOK:
		return nil
	case err == nil, errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return app.ErrInvalidCredentials
	default:
		return err
	}
}
