package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// ShortCodeLength is the length of generated short codes
	ShortCodeLength = 6
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)

// ValidAlias reports whether a user supplied alias is acceptable as a short code
func ValidAlias(alias string) bool {
	return aliasPattern.MatchString(alias)
}

// GenerateShortCode returns a random alphanumeric code of ShortCodeLength characters
func GenerateShortCode() (string, error) {
	return RandomBase62(ShortCodeLength)
}

// RandomBase62 draws n characters uniformly from the base62 alphabet
func RandomBase62(n int) (string, error) {
	max := big.NewInt(int64(len(base62Chars)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = base62Chars[idx.Int64()]
	}
	return string(buf), nil
}
