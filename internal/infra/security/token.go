package security

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

var roomEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// RandomTokens produces lowercase base32 identifiers, safe in URL paths and
// in meeting room names that are matched case-insensitively.
type RandomTokens struct {
	Size   int // random bytes, 16 when unset
	Prefix string
}

func (g RandomTokens) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = 16
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: read entropy: %w", err)
	}
	return g.Prefix + strings.ToLower(roomEncoding.EncodeToString(buf)), nil
}
