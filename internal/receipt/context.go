package receipt

// Context accumulates side-table entries that emerge as a byproduct of
// writing metadata and path components: a size that doesn't fit in the
// 32-bit common block, or a metadata block shared by more than one path
// component. The façade threads one Context through an entire write or
// read, then flushes (or consults) it when it serializes (or reads) the
// Size64 and HLIndex named blocks.
//
// Its lifecycle matches a single receipt write/read: Reset clears it, the
// path-component and metadata codecs populate or consult it as they go,
// and the façade writes its tables only after Paths is finished, so that
// every update from Paths serialization is included. The façade reads the
// tables in place; it does not remove them from the context or clear them
// after writing.
type Context struct {
	// FileSize64 maps a metadata block index to its true size, for records
	// whose size overflowed the 32-bit common block field.
	FileSize64 map[uint32]uint64

	// HardLinks maps a metadata block index (the first, "primary" path
	// component to reference it) to the names of subsequent components
	// that share the same metadata block.
	HardLinks map[uint32][]string

	// seen tracks which metadata block indices have already been assigned
	// a primary path component, so a second reference is recognized as a
	// hard link rather than re-recorded as primary.
	seen map[uint32]bool
}

// NewContext returns an empty context ready for one write or read.
func NewContext() *Context {
	return &Context{
		FileSize64: make(map[uint32]uint64),
		HardLinks:  make(map[uint32][]string),
		seen:       make(map[uint32]bool),
	}
}

// Reset clears c in place so it can be reused for another receipt.
func (c *Context) Reset() {
	c.FileSize64 = make(map[uint32]uint64)
	c.HardLinks = make(map[uint32][]string)
	c.seen = make(map[uint32]bool)
}

// RecordSize64 records that the metadata block at blockIndex holds a size
// that overflowed the 32-bit common block field.
func (c *Context) RecordSize64(blockIndex uint32, size uint64) {
	c.FileSize64[blockIndex] = size
}

// RecordPathComponent records that name's metadata lives at blockIndex,
// and reports whether blockIndex was already claimed by an earlier path
// component (a hard link). On the first call for a given blockIndex it
// only remembers the claim; on every later call for the same blockIndex
// it appends name to that block's alternate names.
func (c *Context) RecordPathComponent(blockIndex uint32, name string) (isHardLink bool) {
	if c.seen[blockIndex] {
		c.HardLinks[blockIndex] = append(c.HardLinks[blockIndex], name)
		return true
	}
	c.seen[blockIndex] = true
	return false
}
