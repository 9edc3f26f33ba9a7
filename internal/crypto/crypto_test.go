package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)

	plaintext := "see you on the other side"
	sealed, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	got, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestCipher_NoncesDiffer(t *testing.T) {
	c, err := NewCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)

	first, err := c.Encrypt("same input")
	require.NoError(t, err)
	second, err := c.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewCipher_BadKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	assert.Error(t, err)
}

func TestCipher_Decrypt_Garbage(t *testing.T) {
	c, err := NewCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = c.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = c.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)
}

func TestCipher_Decrypt_WrongKey(t *testing.T) {
	a, err := NewCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)
	b, err := NewCipher([]byte("fedcba9876543210"))
	require.NoError(t, err)

	sealed, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.Error(t, err)
}
