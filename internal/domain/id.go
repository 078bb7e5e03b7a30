package domain

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueID mints a random identifier like "gs_3f2a…". Opaque by contract:
// nothing may be derived from it beyond equality.
func NewOpaqueID(prefix string) string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Must not panic in the request path.
		return prefix + "_0"
	}
	return prefix + "_" + hex.EncodeToString(b[:])
}
