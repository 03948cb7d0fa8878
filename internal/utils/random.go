package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomToken returns a hex-encoded string from 32 bytes of secure
// randomness. It seeds rand_token at registration and replaces it on
// logout so the previous refresh token stops matching immediately.
func RandomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// nothing sensible can continue.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
