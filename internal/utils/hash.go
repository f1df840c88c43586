package utils

import "hash/fnv"

// HashParts returns a stable 64-bit FNV-1a hash of parts joined by newlines.
func HashParts(parts ...string) uint64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{'\n'})
		}
		_, _ = h.Write([]byte(p))
	}
	return h.Sum64()
}
