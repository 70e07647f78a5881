package bom

import (
	"io"

	"golang.org/x/xerrors"
)

// Block is a contiguous byte range in the file. A null block has
// Offset == Len == 0 and occupies an index slot without consuming file space.
type Block struct {
	Offset uint32
	Len    uint32
}

// IsNull reports whether b is the null block.
func (b Block) IsNull() bool {
	return b.Offset == 0 && b.Len == 0
}

// Slice returns the byte range b addresses within file.
func (b Block) Slice(file []byte) []byte {
	i := int(b.Offset)
	j := i + int(b.Len)
	return file[i:j]
}

func (b Block) writeBE(w io.Writer) error {
	if err := WriteU32(w, b.Offset); err != nil {
		return err
	}
	return WriteU32(w, b.Len)
}

func readBlockBE(r io.Reader) (Block, error) {
	offset, err := ReadU32(r)
	if err != nil {
		return Block{}, err
	}
	length, err := ReadU32(r)
	if err != nil {
		return Block{}, err
	}
	return Block{Offset: offset, Len: length}, nil
}

// writeSeeker is the minimal capability the block store needs from its
// caller: a cursor it can both write through and query/restore.
type writeSeeker interface {
	io.Writer
	io.Seeker
}

// Blocks is the block store: an ordered sequence of occupied block
// descriptors plus a parallel list of free (null) block descriptors.
// Index 0 is always a null block.
type Blocks struct {
	blocks     []Block
	nullBlocks []Block
}

// NewBlocks returns a fresh block store: index 0 is the null block, and two
// additional null blocks are reserved at the tail, matching what BOM readers
// in the wild expect to find.
func NewBlocks() *Blocks {
	return &Blocks{
		blocks:     []Block{{}},
		nullBlocks: []Block{{}, {}},
	}
}

// Append invokes emit with the writer positioned at the current stream
// offset, measures how many bytes it wrote, and records a new block
// descriptor for that range. It returns the descriptor's index.
func (b *Blocks) Append(w writeSeeker, emit func(writeSeeker) error) (uint32, error) {
	index := b.NextBlockIndex()
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("append block: %w", err)
	}
	if err := emit(w); err != nil {
		return 0, xerrors.Errorf("append block: %w", err)
	}
	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("append block: %w", err)
	}
	offset, err := toU32(start)
	if err != nil {
		return 0, err
	}
	length, err := toU32(end - start)
	if err != nil {
		return 0, err
	}
	b.blocks = append(b.blocks, Block{Offset: offset, Len: length})
	return index, nil
}

// AppendNull reserves a block index at the current stream position without
// writing anything; the slot is occupied but consumes no file bytes.
func (b *Blocks) AppendNull(w writeSeeker) (uint32, error) {
	index := b.NextBlockIndex()
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("append null block: %w", err)
	}
	offset, err := toU32(pos)
	if err != nil {
		return 0, err
	}
	b.blocks = append(b.blocks, Block{Offset: offset, Len: 0})
	return index, nil
}

// Slice returns the byte range addressed by block index.
func (b *Blocks) Slice(index uint32, file []byte) ([]byte, error) {
	if int(index) >= len(b.blocks) {
		return nil, ErrInvalidBlockIndex
	}
	block := b.blocks[index]
	if int(block.Offset)+int(block.Len) > len(file) {
		return nil, ErrTruncated
	}
	return block.Slice(file), nil
}

// BlockAt returns the descriptor stored at index.
func (b *Blocks) BlockAt(index uint32) (Block, error) {
	if int(index) >= len(b.blocks) {
		return Block{}, ErrInvalidBlockIndex
	}
	return b.blocks[index], nil
}

// NumNonNullBlocks returns the count of occupied blocks that are not the
// null block; the null slots reserve index space but no file bytes.
func (b *Blocks) NumNonNullBlocks() int {
	n := 0
	for _, block := range b.blocks {
		if !block.IsNull() {
			n++
		}
	}
	return n
}

// NextBlockIndex returns the index that would be assigned to the next
// appended block.
func (b *Blocks) NextBlockIndex() uint32 {
	return uint32(len(b.blocks))
}

// LastBlockIndex returns the index of the most recently appended block, or
// false if the store is empty (which never happens in practice: NewBlocks
// always seeds index 0).
func (b *Blocks) LastBlockIndex() (uint32, bool) {
	if len(b.blocks) == 0 {
		return 0, false
	}
	return uint32(len(b.blocks) - 1), true
}

// WriteBE serializes the block store: count, then the occupied blocks, then
// the free-block count and list.
func (b *Blocks) WriteBE(w io.Writer) error {
	if err := WriteU32(w, uint32(len(b.blocks))); err != nil {
		return err
	}
	for _, block := range b.blocks {
		if err := block.writeBE(w); err != nil {
			return err
		}
	}
	if err := WriteU32(w, uint32(len(b.nullBlocks))); err != nil {
		return err
	}
	for _, block := range b.nullBlocks {
		if err := block.writeBE(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlocksBE deserializes a block store in the format WriteBE produces.
func ReadBlocksBE(r io.Reader) (*Blocks, error) {
	numBlocks, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		block, err := readBlockBE(r)
		if err != nil {
			return nil, xerrors.Errorf("read block %d: %w", i, err)
		}
		blocks = append(blocks, block)
	}
	numFree, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	nullBlocks := make([]Block, 0, numFree)
	for i := uint32(0); i < numFree; i++ {
		block, err := readBlockBE(r)
		if err != nil {
			return nil, xerrors.Errorf("read free block %d: %w", i, err)
		}
		nullBlocks = append(nullBlocks, block)
	}
	return &Blocks{blocks: blocks, nullBlocks: nullBlocks}, nil
}

func toU32(v int64) (uint32, error) {
	if v < 0 || v > int64(^uint32(0)) {
		return 0, ErrFileTooLarge
	}
	return uint32(v), nil
}
