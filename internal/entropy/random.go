// Package entropy seeds the game's single random stream.
//
// Every stochastic rule of a game draws from one *rand.Rand owned by the
// game loop, so a game replays identically from its seed and its commands.
package entropy

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Stream offsets keep the map generator and the game rules on separate
// sequences derived from one seed.
const (
	StreamRules int64 = iota * 1_000_003
	StreamMap
	StreamPlacement
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	// Zero means "pick one" in the configuration.
	seed := int64(binary.LittleEndian.Uint64(b[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed, nil
}

// Derive returns the seed of one stream of a game.
func Derive(seed, stream int64) int64 {
	return seed + stream
}

// New returns the generator for one stream of a game.
func New(seed, stream int64) *rand.Rand {
	return rand.New(rand.NewSource(Derive(seed, stream)))
}
