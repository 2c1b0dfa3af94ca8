// Package schemajsconfig carries the storage-relevant default size
// constants. It is deliberately narrow: the full TOML workspace loader, CLI
// flags, and auth/RPC defaults stay out of this module's scope.
package schemajsconfig

import "github.com/c2h5oh/datasize"

// Default capacities for a freshly configured database.
const (
	DefaultMainShardCapacity      = 2_500_000
	DefaultTempShardCapacity      = 1_000
	DefaultTempFanout             = 5
	DefaultHashIndexShardCapacity = 10_000_000
	DefaultMaxFileDescriptors     = 2_500
)

// Sizes bundles the capacity knobs a QueryManager needs. Zero fields fall
// back to the Default* constants via WithDefaults.
type Sizes struct {
	MainShardCapacity      uint64
	TempShardCapacity      uint64
	TempFanout             int
	HashIndexShardCapacity uint64
	MaxFileDescriptors     int
}

// WithDefaults fills any zero field with its default.
func (s Sizes) WithDefaults() Sizes {
	if s.MainShardCapacity == 0 {
		s.MainShardCapacity = DefaultMainShardCapacity
	}
	if s.TempShardCapacity == 0 {
		s.TempShardCapacity = DefaultTempShardCapacity
	}
	if s.TempFanout == 0 {
		s.TempFanout = DefaultTempFanout
	}
	if s.HashIndexShardCapacity == 0 {
		s.HashIndexShardCapacity = DefaultHashIndexShardCapacity
	}
	if s.MaxFileDescriptors == 0 {
		s.MaxFileDescriptors = DefaultMaxFileDescriptors
	}
	return s
}

// ParseCapacity parses a human-readable size string (e.g. "64MB") into a
// record count multiplier-free byte count, for operators overriding a
// capacity in bytes-of-on-disk-size terms rather than a raw record count.
func ParseCapacity(human string) (uint64, error) {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(human)); err != nil {
		return 0, err
	}
	return v.Bytes(), nil
}
