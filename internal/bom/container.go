package bom

import (
	"bytes"
	"io"

	"golang.org/x/xerrors"
)

const (
	// HeaderLen is the total size of the fixed container header, including
	// zero padding.
	HeaderLen = 512

	// realHeaderLen is the number of header bytes that actually carry
	// information; the rest is zero padding out to HeaderLen.
	realHeaderLen = 32
)

var magic = []byte("BOMStore")

// Container is the top-level BOM document: a block store plus the
// named-block table that indexes into it.
type Container struct {
	Blocks      *Blocks
	NamedBlocks *NamedBlocks
}

// NewContainer returns an empty container ready to have named blocks
// written into it.
func NewContainer() *Container {
	return &Container{
		Blocks:      NewBlocks(),
		NamedBlocks: NewNamedBlocks(),
	}
}

// Write appends the named-block table and the block-index table as
// ordinary trailing bytes wherever the writer's cursor already sits, then
// seeks back to offset 0 and writes the header pointing at both. Callers
// that stream payload blocks through w before calling Write (as a receipt
// Session does) must reserve the header themselves by seeking past
// HeaderLen before writing anything; Write only reserves it here if the
// cursor hasn't reached HeaderLen yet, so it never seeks backward over
// payload already written.
func (c *Container) Write(w io.WriteSeeker) error {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("bom: query position: %w", err)
	}
	if pos < HeaderLen {
		if _, err := w.Seek(HeaderLen, io.SeekStart); err != nil {
			return xerrors.Errorf("bom: reserve header: %w", err)
		}
	}

	var namedBuf bytes.Buffer
	if err := c.NamedBlocks.WriteBE(&namedBuf); err != nil {
		return xerrors.Errorf("bom: write named blocks: %w", err)
	}
	namedBlocksRegion, err := appendRaw(w, namedBuf.Bytes())
	if err != nil {
		return err
	}

	var blocksBuf bytes.Buffer
	if err := c.Blocks.WriteBE(&blocksBuf); err != nil {
		return xerrors.Errorf("bom: write block index: %w", err)
	}
	blocksRegion, err := appendRaw(w, blocksBuf.Bytes())
	if err != nil {
		return err
	}

	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return xerrors.Errorf("bom: seek to header: %w", err)
	}
	var header bytes.Buffer
	header.Write(magic)
	if err := WriteU32(&header, 1); err != nil {
		return err
	}
	if err := WriteU32(&header, uint32(c.Blocks.NumNonNullBlocks())); err != nil {
		return err
	}
	if err := blocksRegion.writeBE(&header); err != nil {
		return err
	}
	if err := namedBlocksRegion.writeBE(&header); err != nil {
		return err
	}
	header.Write(make([]byte, HeaderLen-realHeaderLen))
	if _, err := w.Write(header.Bytes()); err != nil {
		return xerrors.Errorf("bom: write header: %w", err)
	}
	return nil
}

// appendRaw writes b at the writer's current position and returns the block
// descriptor for the range it occupied.
func appendRaw(w io.WriteSeeker, b []byte) (Block, error) {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return Block{}, xerrors.Errorf("bom: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return Block{}, xerrors.Errorf("bom: %w", err)
	}
	offset, err := toU32(start)
	if err != nil {
		return Block{}, err
	}
	length, err := toU32(int64(len(b)))
	if err != nil {
		return Block{}, err
	}
	return Block{Offset: offset, Len: length}, nil
}

// ReadContainer parses the fixed header out of file and reconstructs the
// block store and named-block table it points to.
func ReadContainer(file []byte) (*Container, error) {
	if len(file) < HeaderLen {
		return nil, ErrTruncated
	}
	if !bytes.Equal(file[:8], magic) {
		return nil, ErrNotABomStore
	}
	r := bytes.NewReader(file[8:])
	version, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, ErrUnsupportedVersion
	}
	if _, err := ReadU32(r); err != nil { // non-null block count, informational only
		return nil, err
	}
	blocksRegion, err := readBlockBE(r)
	if err != nil {
		return nil, err
	}
	namedBlocksRegion, err := readBlockBE(r)
	if err != nil {
		return nil, err
	}

	if int(blocksRegion.Offset)+int(blocksRegion.Len) > len(file) ||
		int(namedBlocksRegion.Offset)+int(namedBlocksRegion.Len) > len(file) {
		return nil, ErrTruncated
	}

	blocks, err := ReadBlocksBE(bytes.NewReader(blocksRegion.Slice(file)))
	if err != nil {
		return nil, xerrors.Errorf("bom: read block index: %w", err)
	}
	namedBlocks, err := ReadNamedBlocksBE(bytes.NewReader(namedBlocksRegion.Slice(file)))
	if err != nil {
		return nil, xerrors.Errorf("bom: read named blocks: %w", err)
	}
	return &Container{Blocks: blocks, NamedBlocks: namedBlocks}, nil
}
