// Package sharecode generates the short codes users type to retrieve a file.
package sharecode

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/dropcode/dropcode/internal/domain"
)

// Length is the number of characters in a share code.
const Length = 6

// Uppercase letters and digits, minus 0/O and 1/I which users misread.
// 32 characters divides 256 evenly, so drawing bytes modulo the alphabet
// stays uniform.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// maxAttempts bounds collision retries before giving up.
const maxAttempts = 5

// Generator mints codes that are unique among active records.
type Generator struct {
	exists func(code string) (bool, error)
}

// NewGenerator creates a Generator. exists reports whether a code is already
// held by an active record.
func NewGenerator(exists func(code string) (bool, error)) *Generator {
	return &Generator{exists: exists}
}

// New draws codes until one is free, up to maxAttempts. It returns
// domain.ErrGenerationExhausted when every draw collides, which means the
// active code space is close to saturated.
func (g *Generator) New() (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code, err := draw()
		if err != nil {
			return "", err
		}

		taken, err := g.exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrGenerationExhausted
}

func draw() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Normalize maps user input to canonical code form. Codes are matched
// case-insensitively.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code could have been produced by this generator.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}
