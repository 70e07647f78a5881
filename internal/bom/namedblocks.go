package bom

import (
	"io"

	"golang.org/x/xerrors"
)

type namedBlockEntry struct {
	name  string
	index uint32
}

// NamedBlocks is an order-preserving association list of (name, block
// index) pairs: the small set of named entry points into a block store.
type NamedBlocks struct {
	entries []namedBlockEntry
}

// NewNamedBlocks returns an empty named-block table.
func NewNamedBlocks() *NamedBlocks {
	return &NamedBlocks{}
}

// Insert appends (or replaces, if name is already present) an entry.
func (n *NamedBlocks) Insert(name string, index uint32) {
	for i := range n.entries {
		if n.entries[i].name == name {
			n.entries[i].index = index
			return
		}
	}
	n.entries = append(n.entries, namedBlockEntry{name: name, index: index})
}

// Remove deletes and returns the block index registered for name.
func (n *NamedBlocks) Remove(name string) (uint32, bool) {
	for i := range n.entries {
		if n.entries[i].name == name {
			index := n.entries[i].index
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			return index, true
		}
	}
	return 0, false
}

// Get looks up the block index registered for name without removing it.
func (n *NamedBlocks) Get(name string) (uint32, bool) {
	for _, e := range n.entries {
		if e.name == name {
			return e.index, true
		}
	}
	return 0, false
}

// Len reports the number of remaining entries.
func (n *NamedBlocks) Len() int {
	return len(n.entries)
}

// WriteBE serializes the table: count, then per entry (index, name length,
// name bytes without a terminator).
func (n *NamedBlocks) WriteBE(w io.Writer) error {
	if err := WriteU32(w, uint32(len(n.entries))); err != nil {
		return err
	}
	for _, e := range n.entries {
		if len(e.name) > 255 {
			return ErrNameTooLong
		}
		if err := WriteU32(w, e.index); err != nil {
			return err
		}
		if err := WriteU8(w, uint8(len(e.name))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, e.name); err != nil {
			return xerrors.Errorf("write named block name: %w", err)
		}
	}
	return nil
}

// ReadNamedBlocksBE deserializes a table in the format WriteBE produces. A
// trailing NUL in the name is tolerated and stripped.
func ReadNamedBlocksBE(r io.Reader) (*NamedBlocks, error) {
	count, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	entries := make([]namedBlockEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		index, err := ReadU32(r)
		if err != nil {
			return nil, xerrors.Errorf("read named block %d: %w", i, err)
		}
		nameLen, err := ReadU8(r)
		if err != nil {
			return nil, xerrors.Errorf("read named block %d: %w", i, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, xerrors.Errorf("read named block %d: %w", i, err)
		}
		entries = append(entries, namedBlockEntry{name: ReadCString(name), index: index})
	}
	return &NamedBlocks{entries: entries}, nil
}
