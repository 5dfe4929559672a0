// Package otpcode generates numeric one-time codes from crypto/rand.
package otpcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of digits in a code.
const Length = 6

var upper = big.NewInt(1_000_000)

// Generator draws uniformly from 000000..999999.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (*Generator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("otpcode: read random: %w", err)
	}

	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}
