package sampling

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// NewStream returns a generator for sub-stream index of seed. Streams with
// distinct indices are independent; the same (seed, index) pair always
// reproduces the same sequence.
func NewStream(seed int64, index uint64) *rand.Rand {
	// Mix the index so adjacent streams do not share PCG increments that
	// differ in a single low bit.
	return rand.New(rand.NewPCG(uint64(seed), splitmix64(index)))
}

// RandomSeed draws a fresh seed from the operating system.
func RandomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return int64(rand.Uint64() >> 1)
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
