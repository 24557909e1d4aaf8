package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"skillswap/internal/domain/shared/errs"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused
// instead of silently truncated.
const maxPasswordBytes = 72

var (
	ErrPasswordTooLong  = fmt.Errorf("%w: password exceeds %d bytes", errs.ErrValidation, maxPasswordBytes)
	ErrPasswordMismatch = errors.New("security: password does not match hash")
)

type BcryptHasher struct {
	Cost int // below bcrypt.MinCost means bcrypt.DefaultCost
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("security: hash password: %w", err)
	}
	return string(out), nil
}

func (BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
