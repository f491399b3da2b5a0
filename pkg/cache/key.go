package cache

import (
	"strconv"
	"strings"
)

// CacheKey identifies a piece of contract state.
type CacheKey struct {
	// Namespace is the contract identifier.
	Namespace string

	// Key is the state key within the contract.
	Key string
}

// String generates the composite key used by the backends.
// Format: <len(namespace)>:<namespace>:<key>
//
// The length prefix makes the encoding unambiguous even when either part
// contains ':', e.g.
//
//	{"a:b", "c"} -> 3:a:b:c
//	{"a", "b:c"} -> 1:a:b:c
func (k CacheKey) String() string {
	var b strings.Builder
	n := strconv.Itoa(len(k.Namespace))
	b.Grow(len(n) + len(k.Namespace) + len(k.Key) + 2)
	b.WriteString(n)
	b.WriteByte(':')
	b.WriteString(k.Namespace)
	b.WriteByte(':')
	b.WriteString(k.Key)
	return b.String()
}

// compositeKey is shorthand for CacheKey{namespace, key}.String().
func compositeKey(namespace, key string) string {
	return CacheKey{Namespace: namespace, Key: key}.String()
}
