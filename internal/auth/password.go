// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/samber/oops"
)

// Password policy and generated credential sizes.
const (
	MinPasswordLength     = 8
	MinTempPasswordLength = 12
	MinUsernameSuffixLen  = 6
)

const (
	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	suffixAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ValidatePassword enforces the account password policy: at least
// MinPasswordLength characters with one uppercase letter, one lowercase
// letter and one digit, each from the ASCII range. Other characters are
// allowed but count toward none of the classes.
func ValidatePassword(password string) error {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case 'a' <= r && r <= 'z':
			hasLower = true
		case '0' <= r && r <= '9':
			hasDigit = true
		}
	}

	if len([]rune(password)) < MinPasswordLength || !hasUpper || !hasLower || !hasDigit {
		return oops.Code(CodeWeakPassword).
			With("min_length", MinPasswordLength).
			Errorf("password does not meet security requirements")
	}
	return nil
}

// GenerateTempPassword returns a random password of n characters drawn
// from [A-Za-z0-9]. n is raised to MinTempPasswordLength if smaller.
func GenerateTempPassword(n int) (string, error) {
	if n < MinTempPasswordLength {
		n = MinTempPasswordLength
	}
	return randomString(passwordAlphabet, n)
}

// GenerateTempUsername derives a temporary username from the local part
// of email followed by an underscore and a random lowercase suffix of
// suffixLen characters (at least MinUsernameSuffixLen).
func GenerateTempUsername(email string, suffixLen int) (string, error) {
	if suffixLen < MinUsernameSuffixLen {
		suffixLen = MinUsernameSuffixLen
	}
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	if local == "" {
		return "", oops.Code(CodeMissingField).With("field", "email").Errorf("email has no local part")
	}

	suffix, err := randomString(suffixAlphabet, suffixLen)
	if err != nil {
		return "", err
	}
	return local + "_" + suffix, nil
}

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", oops.Code("AUTH_RANDOM_FAILED").With("operation", "crypto/rand.Int").Wrap(err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
