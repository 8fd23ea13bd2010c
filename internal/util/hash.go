// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash maps common key types to 64 bits for shard routing.
// Strings and byte arrays go through xxhash; integer-like keys are hashed
// from their 8 little-endian bytes; fmt.Stringer falls back to its String().
// Other key types panic: supply Options.Hasher for them instead of getting
// silently poor routing.
func Hash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])
	case [64]byte:
		return xxhash.Sum64(v[:])

	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))

	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		panic(fmt.Sprintf("util.Hash: unsupported key type %T; set Options.Hasher", k))
	}
}

// Hashable reports whether Hash can route keys of type K. Interface key
// types are accepted here and checked per value by Hash.
func Hashable[K comparable]() bool {
	var zero K
	switch any(zero).(type) {
	case nil:
		return true
	case string, [16]byte, [32]byte, [64]byte,
		uint8, uint16, uint32, uint64, uint, uintptr,
		int8, int16, int32, int64, int, fmt.Stringer:
		return true
	default:
		return false
	}
}

func hashUint64(u uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return xxhash.Sum64(b[:])
}
