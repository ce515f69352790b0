package codegen

import (
	"crypto/rand"
	"fmt"
)

// Alphabet for generated invite codes (36 characters: 0-9, a-z). Codes are
// stored normalized to lowercase, so uppercase letters never appear here.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateCode creates a cryptographically secure random invite code of the
// given length, already in its normalized form.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 below 256.
	const maxRandomByte = 252

	code := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			code[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(code), nil
}
