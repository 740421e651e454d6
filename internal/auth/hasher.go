// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// legacyDigestLen is the encoded length of a base64 SHA-256 digest.
const legacyDigestLen = 44

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a storable digest of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the stored digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the stored digest should be rewritten.
	NeedsUpgrade(hash string) bool
}

// HasherOption configures an Argon2idHasher.
type HasherOption func(*Argon2idHasher)

// WithLegacyPlaintext enables plaintext comparison for stored values that
// match no known digest format. Only meant for hand-seeded rows during an
// import; it is off by default.
func WithLegacyPlaintext(enabled bool) HasherOption {
	return func(h *Argon2idHasher) {
		h.legacyPlaintext = enabled
	}
}

// Argon2idHasher writes argon2id digests and verifies argon2id, bcrypt and
// legacy unsalted SHA-256 digests.
type Argon2idHasher struct {
	legacyPlaintext bool
}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher(opts ...HasherOption) *Argon2idHasher {
	h := &Argon2idHasher{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks if the password matches the stored digest.
func (h *Argon2idHasher) Verify(password, stored string) (bool, error) {
	switch {
	case strings.HasPrefix(stored, "$argon2id$"):
		return verifyArgon2id(password, stored)
	case isBcrypt(stored):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, oops.Code("AUTH_INVALID_HASH").With("format", "bcrypt").Wrap(err)
		}
		return true, nil
	case isLegacyDigest(stored):
		computed := LegacyDigest(password)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1, nil
	case h.legacyPlaintext && stored != "":
		return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unrecognized hash format")
	}
}

// NeedsUpgrade returns true if the stored value is not argon2id.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

// LegacyDigest returns the unsalted base64 SHA-256 digest used by rows
// imported from the spreadsheet-backed deployment.
func LegacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func isBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

func isLegacyDigest(stored string) bool {
	if len(stored) != legacyDigestLen {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	return err == nil && len(raw) == sha256.Size
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	if threads == 0 || threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}

	keyLen := len(expectedHash)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computedHash := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}
