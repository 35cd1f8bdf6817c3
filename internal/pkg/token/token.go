// Package token generates the secret tokens carried by unsubscribe and
// resubscribe links. Creation use-cases call these helpers before the
// record is written; storage only enforces uniqueness.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Size is the number of random bytes in a token (64 hex characters).
const Size = 32

// Generator produces a new token.
type Generator func() (string, error)

// New returns 32 cryptographically random bytes encoded as hex.
func New() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// EnsureSubscriberToken assigns an unsubscribe token if the subscriber has
// none yet. An existing token is never replaced.
func EnsureSubscriberToken(s *domain.Subscriber, gen Generator) error {
	if s.UnsubscribeToken != "" {
		return nil
	}
	tok, err := gen()
	if err != nil {
		return err
	}
	s.UnsubscribeToken = tok
	return nil
}

// EnsureResubscribeToken assigns a resubscribe token only when the record
// allows resubscribing and has no token yet.
func EnsureResubscribeToken(u *domain.Unsubscription, gen Generator) error {
	if !u.CanResubscribe || u.ResubscribeToken != "" {
		return nil
	}
	tok, err := gen()
	if err != nil {
		return err
	}
	u.ResubscribeToken = tok
	return nil
}
