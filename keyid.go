package respcache

import (
	"crypto/rand"
	"encoding/hex"
)

// newKeyPrefix returns a globally unique opaque identifier used as a
// BodyKeyPrefix or VaryKeyPrefix. 128 bits of randomness keep collisions
// out of reach even across unrelated processes sharing a backend.
func newKeyPrefix() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
