package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"guardian-chat/errors"
)

// Salt and digest sizes are fixed; only the cost parameters are tunable.
const (
	saltLength = 16
	keyLength  = 32
)

// Argon2Params hold the cost settings of the Argon2id derivation. They come
// from the environment like every other tunable, and each encoded hash embeds
// the settings it was produced with, so stored credentials keep verifying
// after a retune.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2Params follow the OWASP baseline (64 MiB, 3 passes, 2 lanes).
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 2}
}

// HashPassword derives an Argon2id digest from a fresh random salt and
// encodes everything needed for verification in the standard
// $argon2id$v=..$m=..,t=..,p=..$salt$digest form, base64 without padding.
func (p Argon2Params) HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation failed: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest)), nil
}

// ComparePassword re-derives the digest with the cost settings recorded in
// the stored hash and compares in constant time. A value that does not parse
// reports errors.ErrMalformedHash, never a plain mismatch.
func ComparePassword(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errors.ErrMalformedHash
	}

	var params Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Iterations, &params.Parallelism); err != nil {
		return false, errors.ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.ErrMalformedHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, errors.ErrMalformedHash
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, uint32(len(digest)))

	return subtle.ConstantTimeCompare(digest, candidate) == 1, nil
}
