package token

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MinSecretLength is the shortest signing secret accepted in production.
const MinSecretLength = 32

// GenerateSecret returns a random base62 string suitable as an HMAC key.
func GenerateSecret(length int) (string, error) {
	if length < MinSecretLength {
		return "", errors.New("secret length must be at least 32")
	}

	result := make([]byte, length)
	base62Len := big.NewInt(int64(len(base62Chars)))

	for i := range result {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", err
		}
		result[i] = base62Chars[num.Int64()]
	}

	return string(result), nil
}
