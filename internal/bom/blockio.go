package bom

import (
	"bytes"
	"io"
)

// This file holds the block-I/O helpers every higher-level encoder in
// internal/receipt builds on: writing a value through the block store and
// getting back the index it landed at, slicing a value back out on read,
// and the pointer-or-null-sentinel encoding used for optional sub-trees.

// WriteValueBlock allocates a new block and fills it by calling emit with a
// writer positioned at the block's start.
func WriteValueBlock(w writeSeeker, blocks *Blocks, emit func(io.Writer) error) (uint32, error) {
	return blocks.Append(w, func(w writeSeeker) error { return emit(w) })
}

// ReadValueBlock slices out the bytes of the block at index and hands them
// to decode.
func ReadValueBlock[T any](index uint32, file []byte, blocks *Blocks, decode func([]byte) (T, error)) (T, error) {
	var zero T
	b, err := blocks.Slice(index, file)
	if err != nil {
		return zero, err
	}
	return decode(b)
}

// WritePointerBlock appends a new block that contains only the big-endian
// index of valueIndex: one level of pointer indirection, used to encode
// Option[T] fields (VIndex's optional sub-tree, among others).
func WritePointerBlock(w writeSeeker, blocks *Blocks, valueIndex uint32) (uint32, error) {
	return WriteValueBlock(w, blocks, func(w io.Writer) error { return WriteU32(w, valueIndex) })
}

// WriteNullPointerBlock appends a null block and then a pointer block that
// references it, encoding an absent Option[T] value.
func WriteNullPointerBlock(w writeSeeker, blocks *Blocks) (uint32, error) {
	nullIndex, err := blocks.AppendNull(w)
	if err != nil {
		return 0, err
	}
	return WritePointerBlock(w, blocks, nullIndex)
}

// ReadPointerBlock reads the index stored in the pointer block at index and
// reports whether the pointee is present (as opposed to the null
// sentinel block written by WriteNullPointerBlock).
func ReadPointerBlock(index uint32, file []byte, blocks *Blocks) (valueIndex uint32, present bool, err error) {
	b, err := blocks.Slice(index, file)
	if err != nil {
		return 0, false, err
	}
	valueIndex, err = ReadU32(bytes.NewReader(b))
	if err != nil {
		return 0, false, err
	}
	pointee, err := blocks.BlockAt(valueIndex)
	if err != nil {
		return 0, false, err
	}
	if pointee.Len == 0 {
		return 0, false, nil
	}
	return valueIndex, true, nil
}

// WriteU32Block writes a single big-endian uint32 as its own block.
func WriteU32Block(w writeSeeker, blocks *Blocks, v uint32) (uint32, error) {
	return WriteValueBlock(w, blocks, func(w io.Writer) error { return WriteU32(w, v) })
}

// ReadU32Block reads a single big-endian uint32 back from its block.
func ReadU32Block(index uint32, file []byte, blocks *Blocks) (uint32, error) {
	return ReadValueBlock(index, file, blocks, func(b []byte) (uint32, error) {
		return ReadU32(bytes.NewReader(b))
	})
}

// WriteU64Block writes a single big-endian uint64 as its own block.
func WriteU64Block(w writeSeeker, blocks *Blocks, v uint64) (uint32, error) {
	return WriteValueBlock(w, blocks, func(w io.Writer) error { return WriteU64(w, v) })
}

// ReadU64Block reads a single big-endian uint64 back from its block.
func ReadU64Block(index uint32, file []byte, blocks *Blocks) (uint64, error) {
	return ReadValueBlock(index, file, blocks, func(b []byte) (uint64, error) {
		return ReadU64(bytes.NewReader(b))
	})
}

// WriteCStringBlock writes a NUL-terminated string as its own block. There
// is no length prefix: the block boundary itself carries the length, and
// the trailing NUL exists only to let other readers find the end the way
// Apple's own tools expect.
func WriteCStringBlock(w writeSeeker, blocks *Blocks, s string) (uint32, error) {
	return WriteValueBlock(w, blocks, func(w io.Writer) error {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
		_, err := w.Write([]byte{0})
		return err
	})
}

// ReadCStringBlock reads a NUL-terminated string back from its block.
func ReadCStringBlock(index uint32, file []byte, blocks *Blocks) (string, error) {
	return ReadValueBlock(index, file, blocks, func(b []byte) (string, error) {
		return ReadCString(b), nil
	})
}
