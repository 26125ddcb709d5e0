package usecase

import (
	"fmt"
	"math/rand/v2"
)

// AccountNumberPrefix marks numbers issued by this bank.
const AccountNumberPrefix = "NEX"

// RandomAccountNumbers draws prefix + nine random digits.
type RandomAccountNumbers struct {
	prefix string
	intN   func(n int) int
}

// NewRandomAccountNumbers creates a generator. An empty prefix uses AccountNumberPrefix.
func NewRandomAccountNumbers(prefix string) *RandomAccountNumbers {
	if prefix == "" {
		prefix = AccountNumberPrefix
	}
	return &RandomAccountNumbers{prefix: prefix, intN: rand.IntN}
}

// Next returns a candidate account number.
func (g *RandomAccountNumbers) Next() string {
	return fmt.Sprintf("%s%09d", g.prefix, 100_000_000+g.intN(900_000_000))
}
