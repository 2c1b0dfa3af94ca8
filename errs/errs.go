// Package errs collects the sentinel errors shared by every storage
// primitive in this module. Callers are expected to use errors.Is against
// these values; wrapping with fmt.Errorf("...: %w", ...) is the norm at
// component boundaries.
package errs

import "errors"

var (
	// ErrOutOfPositions is returned by a shard whose offset/record table is
	// full. MapShard treats this as a rollover signal, not a hard failure.
	ErrOutOfPositions = errors.New("shard: out of positions")

	// ErrUnknownOffset is returned when reading a record index that was
	// never written (beyond last_offset_index, or zero in a zero-initialized
	// slot).
	ErrUnknownOffset = errors.New("shard: unknown offset")

	// ErrUnknownEntry is returned when a KvShard read index is out of the
	// populated range.
	ErrUnknownEntry = errors.New("shard: unknown entry")

	// ErrRange is returned when a read extends past the end of the file.
	ErrRange = errors.New("filebacking: range out of bounds")

	// ErrFlushing wraps failures flushing or remapping a file after a write.
	ErrFlushing = errors.New("filebacking: flush failed")

	// ErrTooManyOpen is returned by FDCache.Acquire when every cached entry
	// is currently busy and capacity is exhausted.
	ErrTooManyOpen = errors.New("fdcache: too many open descriptors")

	// ErrInvalidTable is returned for operations against an unregistered
	// table name.
	ErrInvalidTable = errors.New("query: invalid table")

	// ErrUnknownPrimaryColumn is returned when a table has no resolvable
	// primary key column.
	ErrUnknownPrimaryColumn = errors.New("schema: unknown primary column")

	// ErrValueNotPresent is returned when a required column has no value on
	// insertion.
	ErrValueNotPresent = errors.New("schema: value not present")

	// ErrInvalidSerialization is returned when a row fails to encode or
	// decode.
	ErrInvalidSerialization = errors.New("schema: invalid serialization")

	// ErrInvalidInsertion wraps storage I/O failures surfaced during insert.
	ErrInvalidInsertion = errors.New("query: invalid insertion")
)
