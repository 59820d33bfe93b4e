// Package token issues the opaque capability strings that gate every view
// of a group.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Size is the number of random bytes behind every token.
const Size = 32

// Length is the encoded length of a token.
var Length = base64.RawURLEncoding.EncodedLen(Size)

// Issuer generates tokens. The zero value reads from crypto/rand.
// It holds no state and is safe for concurrent use.
type Issuer struct {
	// Rand overrides the entropy source; nil means crypto/rand.
	Rand func(b []byte) (int, error)
}

// New returns a fresh base64url token.
func (i Issuer) New() (string, error) {
	read := i.Rand
	if read == nil {
		read = rand.Read
	}

	b := make([]byte, Size)
	if _, err := read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WellFormed reports whether tok could have been produced by New.
// It lets callers reject garbage without touching storage.
func WellFormed(tok string) bool {
	if len(tok) != Length {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Digest returns the hex blake2b-256 of tok, used to store admin tokens
// without keeping the secret itself.
func Digest(tok string) string {
	sum := blake2b.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
