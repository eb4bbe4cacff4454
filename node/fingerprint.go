package node

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// computeFingerprint generates a stable hash of the settings and mapping
// payloads an index was created with. Type order does not matter.
func computeFingerprint(settings string, mappings map[string]string) string {
	h := sha256.New()

	h.Write([]byte(settings))
	h.Write([]byte{0}) // separator

	types := make([]string, 0, len(mappings))
	for t := range mappings {
		types = append(types, t)
	}
	slices.Sort(types)

	for _, t := range types {
		h.Write([]byte(t))
		h.Write([]byte{0})
		h.Write([]byte(mappings[t]))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
