package membership

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, salt, err := hashPassword("s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEmpty(t, salt)

	ok, err := verifyPassword("s3cret", salt, hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = verifyPassword("wrong", salt, hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPassword_UsesFreshSalt(t *testing.T) {
	h1, s1, err := hashPassword("same")
	require.NoError(t, err)
	h2, s2, err := hashPassword("same")
	require.NoError(t, err)

	require.NotEqual(t, s1, s2)
	require.NotEqual(t, h1, h2)
}

func TestVerifyPassword_BadEncoding(t *testing.T) {
	_, err := verifyPassword("x", "%%%", "AAAA")
	require.Error(t, err)

	_, err = verifyPassword("x", "AAAA", "%%%")
	require.Error(t, err)
}

func TestHashPassword_RecordsSettings(t *testing.T) {
	hash, _, err := hashPassword("s3cret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "m=65536,t=1,p=4$"), hash)
}

func TestVerifyPassword_OlderFormats(t *testing.T) {
	salt := []byte("0123456789abcdef")
	encSalt := b64.EncodeToString(salt)

	// Keys stored without settings predate the encoded format.
	bare := b64.EncodeToString(defaultArgon.derive("s3cret", salt))
	ok, err := verifyPassword("s3cret", encSalt, bare)
	require.NoError(t, err)
	require.True(t, ok)

	cheaper := argonParams{memory: 8 * 1024, time: 2, threads: 1, keyLen: 16}
	encoded := encodeHash(cheaper, cheaper.derive("s3cret", salt))
	ok, err = verifyPassword("s3cret", encSalt, encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = verifyPassword("other", encSalt, encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	salt := b64.EncodeToString([]byte("0123456789abcdef"))
	for _, hash := range []string{"m=x,t=1,p=4$AAAA", "m=65536,t=1,p=4$", ""} {
		_, err := verifyPassword("x", salt, hash)
		require.Error(t, err, hash)
	}
}
