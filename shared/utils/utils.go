package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GenerateID generates a unique ID with the given prefix
func GenerateID(prefix string) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 10

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[num.Int64()]
	}

	return fmt.Sprintf("%s-%s", prefix, string(result))
}

// ParseMonth parses a full English month name such as "March".
// Surrounding whitespace is ignored; abbreviations and numbers are rejected.
func ParseMonth(name string) (time.Month, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("month is empty")
	}
	t, err := time.Parse("January", name)
	if err != nil {
		return 0, fmt.Errorf("unknown month %q", name)
	}
	return t.Month(), nil
}
