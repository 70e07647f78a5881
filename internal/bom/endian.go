// Package bom implements Apple's Bill-Of-Materials block store: a generic
// container of addressable byte ranges, a named-block index into that store,
// and a paged key/value tree built on top of both.
package bom

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// All integers in a BOM file are big-endian. ReadU8..ReadU64 and
// WriteU8..WriteU64 centralize that conversion; they're exported so
// internal/receipt's metadata codec shares the same BE layer instead of
// reimplementing it.

func ReadU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, xerrors.Errorf("read u8: %w", err)
	}
	return b[0], nil
}

func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	if err != nil {
		return xerrors.Errorf("write u8: %w", err)
	}
	return nil
}

func ReadU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, xerrors.Errorf("read u16: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func WriteU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	if _, err := w.Write(b[:]); err != nil {
		return xerrors.Errorf("write u16: %w", err)
	}
	return nil
}

func ReadU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, xerrors.Errorf("read u32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func WriteU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	if _, err := w.Write(b[:]); err != nil {
		return xerrors.Errorf("write u32: %w", err)
	}
	return nil
}

func ReadU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, xerrors.Errorf("read u64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func WriteU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	if _, err := w.Write(b[:]); err != nil {
		return xerrors.Errorf("write u64: %w", err)
	}
	return nil
}

// ReadCString reads a NUL-terminated byte string from a fixed-size slice,
// tolerating (and stripping) the terminator and anything past it.
func ReadCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
