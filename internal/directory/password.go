package directory

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passwordLength = 16

	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	symbolChars  = "!@#$%^&*"
	passwordPool = lowerChars + upperChars + digitChars + symbolChars
)

// GeneratePassword produces a temporary password from a cryptographically
// secure source. It is 16 characters long and always contains at least one
// lowercase letter, uppercase letter, digit and symbol to satisfy the
// directory provider's complexity policy.
func GeneratePassword() (string, error) {
	for {
		buf := make([]byte, passwordLength)
		for i := range buf {
			c, err := randomChar(passwordPool)
			if err != nil {
				return "", err
			}
			buf[i] = c
		}

		password := string(buf)
		if containsAny(password, lowerChars) && containsAny(password, upperChars) &&
			containsAny(password, digitChars) && containsAny(password, symbolChars) {
			return password, nil
		}
	}
}

func randomChar(pool string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return pool[n.Int64()], nil
}

func containsAny(s, chars string) bool {
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(chars); j++ {
			if s[i] == chars[j] {
				return true
			}
		}
	}
	return false
}
