package bom

import "errors"

// Sentinel errors surfaced by the core library. Callers compare against
// these with errors.Is; the CLI layer formats them as "error: <message>".
var (
	// ErrNotABomStore is returned when a container's magic bytes don't
	// match "BOMStore".
	ErrNotABomStore = errors.New("bom: not a BOM store")

	// ErrUnsupportedVersion is returned when a container or tree
	// descriptor declares a version other than 1.
	ErrUnsupportedVersion = errors.New("bom: unsupported version")

	// ErrTruncated is returned when the file is shorter than the fixed
	// header, or a table declares bytes past EOF.
	ErrTruncated = errors.New("bom: truncated file")

	// ErrInvalidBlockIndex is returned when a block index references a
	// slot outside the block-index table.
	ErrInvalidBlockIndex = errors.New("bom: invalid block index")

	// ErrNameTooLong is returned when a named-block name exceeds 255 bytes.
	ErrNameTooLong = errors.New("bom: name too long")

	// ErrFileTooLarge is returned when a block offset or length would
	// overflow uint32.
	ErrFileTooLarge = errors.New("bom: file too large")

	// ErrTooManyEntries is returned when a tree node would need more than
	// 65535 entries.
	ErrTooManyEntries = errors.New("bom: too many entries in one node")

	// ErrLoop is returned when a parent-pointer chain revisits a node.
	ErrLoop = errors.New("bom: loop in path graph")
)
