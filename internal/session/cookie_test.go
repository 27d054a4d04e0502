package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSignAndParse(t *testing.T) {
	signer := NewCookieSigner([]byte("secret"), time.Hour, "")
	id := uuid.New()

	value, err := signer.Sign(id)
	require.NoError(t, err)

	got, err := signer.Parse(value)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestCookieRejectsOtherSecret(t *testing.T) {
	value, err := NewCookieSigner([]byte("one"), time.Hour, "").Sign(uuid.New())
	require.NoError(t, err)

	_, err = NewCookieSigner([]byte("two"), time.Hour, "").Parse(value)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestCookieExpired(t *testing.T) {
	signer := NewCookieSigner([]byte("secret"), time.Hour, "")
	signer.ttl = -time.Minute
	value, err := signer.Sign(uuid.New())
	require.NoError(t, err)

	_, err = signer.Parse(value)
	assert.ErrorIs(t, err, ErrExpiredCookie)
}

func TestCookieGarbage(t *testing.T) {
	_, err := NewCookieSigner([]byte("secret"), 0, "").Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidCookie)
}
