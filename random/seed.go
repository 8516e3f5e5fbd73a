// Package random builds the pseudo-random sources used by game sessions.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed returns a high-entropy seed read from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a *rand.Rand seeded with seed, or with a fresh crypto seed when seed is 0.
// A fixed non-zero seed makes every session replay the same draws.
func NewRand(seed int64) (*rand.Rand, error) {
	if seed == 0 {
		s, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = s
	}
	return rand.New(rand.NewSource(seed)), nil
}
