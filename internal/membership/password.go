package membership

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams are the Argon2id cost settings a hash was derived with.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var defaultArgon = argonParams{memory: 64 * 1024, time: 1, threads: 4, keyLen: 32}

const saltLen = 16

var b64 = base64.StdEncoding

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// hashPassword returns the encoded hash and the base64 salt stored beside it.
// The hash records its settings as "m=65536,t=1,p=4$<key>" so the cost can be
// raised later without invalidating existing credentials.
func hashPassword(password string) (hash, salt string, err error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("read salt: %w", err)
	}
	return encodeHash(defaultArgon, defaultArgon.derive(password, raw)), b64.EncodeToString(raw), nil
}

func encodeHash(p argonParams, key []byte) string {
	return fmt.Sprintf("m=%d,t=%d,p=%d$%s", p.memory, p.time, p.threads, b64.EncodeToString(key))
}

// decodeHash splits an encoded hash into settings and key. A bare key with no
// settings was written with the defaults.
func decodeHash(encoded string) (argonParams, []byte, error) {
	p := defaultArgon
	key := encoded
	if settings, rest, ok := strings.Cut(encoded, "$"); ok {
		if _, err := fmt.Sscanf(settings, "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
			return p, nil, fmt.Errorf("parse hash settings %q: %w", settings, err)
		}
		key = rest
	}
	raw, err := b64.DecodeString(key)
	if err != nil {
		return p, nil, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) == 0 {
		return p, nil, errors.New("empty hash")
	}
	p.keyLen = uint32(len(raw))
	return p, raw, nil
}

// verifyPassword recomputes the key with the settings recorded in hash and
// compares in constant time.
func verifyPassword(password, salt, hash string) (bool, error) {
	rawSalt, err := b64.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	p, want, err := decodeHash(hash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.derive(password, rawSalt)) == 1, nil
}
