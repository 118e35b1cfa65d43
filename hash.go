package golokal

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// HashTranslations computes a SHA-256 hash over the sorted key/value pairs of m.
// Equal maps always hash equally regardless of iteration order.
func HashTranslations(m TranslationMap) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(m[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ContentETag returns a quoted strong validator for m, suitable for an ETag header.
func ContentETag(m TranslationMap) string {
	return `"` + HashTranslations(m)[:16] + `"`
}
