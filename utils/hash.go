package utils

import "hash/fnv"

// U64 hashes s with FNV-64a.
func U64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// FingerprintString returns the cache key used for query templates.
func FingerprintString(s string) uint64 {
	return U64(s)
}
