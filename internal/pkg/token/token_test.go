package token

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

func TestNewIsHex64(t *testing.T) {
	tok, err := New()
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	_, err = hex.DecodeString(tok)
	assert.NoError(t, err)
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := New()
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token generated")
		seen[tok] = true
	}
}

func TestEnsureSubscriberTokenIdempotent(t *testing.T) {
	s := &domain.Subscriber{}
	require.NoError(t, EnsureSubscriberToken(s, New))
	first := s.UnsubscribeToken
	require.Len(t, first, 64)

	for i := 0; i < 3; i++ {
		require.NoError(t, EnsureSubscriberToken(s, New))
	}
	assert.Equal(t, first, s.UnsubscribeToken)
}

func TestEnsureSubscriberTokenPropagatesError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	s := &domain.Subscriber{}
	err := EnsureSubscriberToken(s, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.UnsubscribeToken)
}

func TestEnsureResubscribeToken(t *testing.T) {
	u := &domain.Unsubscription{CanResubscribe: false}
	for i := 0; i < 3; i++ {
		require.NoError(t, EnsureResubscribeToken(u, New))
	}
	assert.Empty(t, u.ResubscribeToken)

	u = &domain.Unsubscription{CanResubscribe: true}
	require.NoError(t, EnsureResubscribeToken(u, New))
	first := u.ResubscribeToken
	require.Len(t, first, 64)
	require.NoError(t, EnsureResubscribeToken(u, New))
	assert.Equal(t, first, u.ResubscribeToken)
}
