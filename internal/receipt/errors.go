package receipt

import "errors"

// Sentinel errors specific to the path-component graph and receipt
// façade; internal/bom's sentinels are returned as-is where the failure
// originates at the block/tree layer, and PathComponentVec.Path reports a
// parent-pointer cycle with bom.ErrLoop.
var (
	// ErrDanglingParent is returned when a component's parent field names
	// a seq_no that no component in the vector carries.
	ErrDanglingParent = errors.New("receipt: dangling parent seq_no")

	// ErrUnsupportedFormat is returned by lsbom-facing helpers for a
	// format string feature the original CLI never implemented.
	ErrUnsupportedFormat = errors.New("receipt: format not supported")
)
