// Package security holds the credential primitives: Argon2id password
// hashes in the PHC string format and random tokens.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/dekorekillian57-star/spendo/pkg/config"
)

const (
	fallbackMinLength = 8
	phcPrefix         = "$argon2id$"
)

// ErrInvalidHash is returned for a stored hash that is not Argon2id PHC.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// argonCost is the tunable part of a hash; it travels inside the encoded string.
type argonCost struct {
	memory  uint32
	passes  uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

func costFromConfig(cfg config.PasswordConfig) argonCost {
	return argonCost{
		memory:  uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(bounded(cfg.ArgonTime, 1, 10)),
		threads: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(bounded(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(bounded(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (c argonCost) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, c.passes, c.memory, c.threads, c.keyLen)
}

// HashPassword derives a fresh salted Argon2id hash, encoded as
// $argon2id$v=19$m=<kb>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	cost := costFromConfig(cfg)
	salt := make([]byte, cost.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := cost.derive(password, salt)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", phcPrefix, argon2.Version,
		cost.memory, cost.passes, cost.threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword re-derives with the cost stored in encoded and compares in
// constant time. A malformed hash is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	cost, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, cost.derive(password, salt)) == 1, nil
}

func parseHash(encoded string) (argonCost, []byte, []byte, error) {
	var cost argonCost
	if !strings.HasPrefix(encoded, phcPrefix) {
		return cost, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(strings.TrimPrefix(encoded, phcPrefix), "$")
	if len(fields) != 4 {
		return cost, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || version != argon2.Version {
		return cost, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &cost.memory, &cost.passes, &cost.threads); err != nil {
		return cost, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[2])
	if err != nil || len(salt) == 0 {
		return cost, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[3])
	if err != nil || len(key) == 0 {
		return cost, nil, nil, ErrInvalidHash
	}
	cost.saltLen, cost.keyLen = uint32(len(salt)), uint32(len(key))
	return cost, salt, key, nil
}

// CheckPasswordLength enforces the configured minimum, counted in characters.
func CheckPasswordLength(password string, cfg config.PasswordConfig) error {
	minLen := cfg.MinLength
	if minLen <= 0 {
		minLen = fallbackMinLength
	}
	if utf8.RuneCountInString(password) < minLen {
		return fmt.Errorf("password must be at least %d characters long", minLen)
	}
	return nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
