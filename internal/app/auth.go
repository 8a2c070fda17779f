package app

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAdminUnavailable is returned when no admin passcode is configured.
	ErrAdminUnavailable = errors.New("app: admin mode is not configured")
	// ErrWrongPasscode is returned for a passcode that does not match.
	ErrWrongPasscode = errors.New("app: wrong passcode")
)

// Authorizer checks admin passcodes against a bcrypt hash.
type Authorizer struct {
	hash []byte
}

// NewAuthorizer accepts a bcrypt hash, or a plain passcode that is hashed
// on the spot when no hash is given. With neither, admin mode stays
// unavailable.
func NewAuthorizer(hash, plain string) (*Authorizer, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("app: invalid passcode hash: %w", err)
		}
		return &Authorizer{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return &Authorizer{}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("app: hash passcode: %w", err)
	}
	return &Authorizer{hash: h}, nil
}

// HashPasscode returns a bcrypt hash suitable for the admin.passcodeHash setting.
func HashPasscode(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Available reports whether a passcode is configured.
func (a *Authorizer) Available() bool {
	return a != nil && len(a.hash) > 0
}

// Check verifies passcode.
func (a *Authorizer) Check(passcode string) error {
	if !a.Available() {
		return ErrAdminUnavailable
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(passcode)); err != nil {
		return ErrWrongPasscode
	}
	return nil
}
