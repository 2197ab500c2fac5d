// Package mockid produces random strings shaped like blockchain identifiers.
//
// Nothing generated here is cryptographic. Addresses are 44 characters drawn from a
// base58-style alphabet and signatures are 88 alphanumeric characters; neither is derived
// from any key or content, and collisions are possible (if astronomically unlikely) and
// not detected.
package mockid

import (
	"math/rand/v2"
	"sync"
)

const (
	AddressAlphabet   = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	SignatureAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	AddressLength   = 44
	SignatureLength = 88
)

// Generator draws characters uniformly, with replacement. The zero value uses the
// process-wide source from math/rand/v2.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeeded returns a Generator with a deterministic source, for tests.
func NewSeeded(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *Generator) Address() string { return g.draw(AddressAlphabet, AddressLength) }

func (g *Generator) Signature() string { return g.draw(SignatureAlphabet, SignatureLength) }

func (g *Generator) draw(alphabet string, n int) string {
	b := make([]byte, n)
	if g == nil || g.rnd == nil {
		for i := range b {
			b[i] = alphabet[rand.IntN(len(alphabet))]
		}
		return string(b)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range b {
		b[i] = alphabet[g.rnd.IntN(len(alphabet))]
	}
	return string(b)
}
