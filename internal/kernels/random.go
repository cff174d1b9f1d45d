package kernels

import (
	"math/rand/v2"
	"sync"
)

// RandomValuePool lazily generates a fixed slice of uniform [0, 100) values
// and hands out the same slice on every call.
type RandomValuePool struct {
	size int
	seed uint64

	once   sync.Once
	values []float32
}

// NewRandomValuePool creates a pool of size values. seed 0 picks a random
// seed; any other seed makes the values reproducible.
func NewRandomValuePool(size int, seed uint64) *RandomValuePool {
	return &RandomValuePool{size: size, seed: seed}
}

// Values returns the pool's values, generating them on first use.
func (p *RandomValuePool) Values() []float32 {
	p.once.Do(func() {
		seed := p.seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

		p.values = make([]float32, p.size)
		for i := range p.values {
			p.values[i] = r.Float32() * 100
		}
	})
	return p.values
}

// Len returns the pool size.
func (p *RandomValuePool) Len() int {
	return p.size
}
