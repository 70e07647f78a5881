// Package receipt builds on internal/bom to implement a BOM receipt: the
// top-level document describing one package's files, with its path graph,
// metadata records, and side tables.
package receipt

import (
	"io"

	"golang.org/x/xerrors"

	"stuckliste.dev/bom/internal/bom"
)

const defaultBlockLen = 4096

// Receipt is the in-memory form of a BOM document round-tripped through a
// Session's writes and Read: the path-component graph and the statistics
// gathered while building it.
type Receipt struct {
	Paths   *PathComponentVec
	BomInfo *BomInfo
}

// Builder accumulates options for a receipt write: whether metadata is
// reduced to paths-only, and the per-node tree block length. The zero
// value, or NewBuilder(), is ready to use.
type Builder struct {
	pathsOnly bool
	blockLen  uint32
}

// NewBuilder returns a Builder with the default per-node tree block
// length.
func NewBuilder() *Builder {
	return &Builder{blockLen: defaultBlockLen}
}

// WithPathsOnly switches metadata construction to entry-type-only: mode,
// ownership, timestamps, size, and checksum are all dropped. It mirrors
// mkbom's -s flag; callers still build each Metadata with receipt.PathsOnly
// when this is set; the builder itself only carries the flag for the
// caller to query.
func (b *Builder) WithPathsOnly() *Builder {
	b.pathsOnly = true
	return b
}

// PathsOnly reports whether the builder is configured for paths-only
// output.
func (b *Builder) PathsOnly() bool {
	return b.pathsOnly
}

// WithBlockLen overrides the per-node tree block length used by every
// tree this builder's sessions write. Zero leaves the default in place.
func (b *Builder) WithBlockLen(n uint32) *Builder {
	if n > 0 {
		b.blockLen = n
	}
	return b
}

func (b *Builder) nodeBlockLen() uint32 {
	if b.blockLen == 0 {
		return defaultBlockLen
	}
	return b.blockLen
}

// NewSession starts a receipt write to w: it reserves the 512-byte
// container header first, so every block written afterward lands past it,
// then allocates the block store and writes the VIndex placeholder
// immediately (VIndex never depends on anything discovered later, so its
// physical position in the file doesn't matter). Callers then drive the
// returned Session's path-component methods in directory-walk order and
// call Finish to complete the write.
func (b *Builder) NewSession(w io.WriteSeeker) (*Session, error) {
	if _, err := w.Seek(bom.HeaderLen, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("receipt: reserve header: %w", err)
	}
	blocks := bom.NewBlocks()
	ctx := NewContext()
	vIndexBlock, err := WriteVIndex(w, blocks)
	if err != nil {
		return nil, xerrors.Errorf("receipt: write VIndex: %w", err)
	}
	return &Session{
		w:           w,
		blocks:      blocks,
		ctx:         ctx,
		blockLen:    b.nodeBlockLen(),
		vIndexBlock: vIndexBlock,
		paths:       NewPathComponentsWriter(w, blocks, ctx),
	}, nil
}

// Session drives one receipt write from directory-walk order through to
// the finished container. A Session must not be reused across writes.
type Session struct {
	w           io.WriteSeeker
	blocks      *bom.Blocks
	ctx         *Context
	blockLen    uint32
	vIndexBlock uint32
	paths       *PathComponentsWriter
}

// AddFile writes m's metadata fresh and appends a path component
// referencing it, returning the new component's seq_no and metadata block
// index. Pass the returned metadata block to AddHardLink for any later
// entry found to share the same inode.
func (s *Session) AddFile(parent uint32, name string, m *Metadata) (seqNo, metadataBlock uint32, err error) {
	return s.paths.AddFile(parent, name, m)
}

// AddHardLink appends a path component that reuses an already-written
// metadata block, recording the hard link in the HLIndex side table.
func (s *Session) AddHardLink(parent uint32, name string, metadataBlock uint32) (uint32, error) {
	return s.paths.AddHardLink(parent, name, metadataBlock)
}

// Finish writes the Paths tree, flushes the context's side tables into
// HLIndex and Size64, writes BomInfo (info.NumPaths is advanced by one
// AddPath call per final component if info is non-nil; a nil info gets one
// allocated), and writes the container header. Named blocks are inserted
// into the table in the fixed order VIndex, HLIndex, Paths, Size64, BomInfo,
// independent of the physical order blocks were written in above.
func (s *Session) Finish(info *BomInfo) (*Receipt, error) {
	pathsBlock, vec, err := s.paths.Finish(s.blockLen)
	if err != nil {
		return nil, xerrors.Errorf("receipt: write Paths: %w", err)
	}

	hlIndexBlock, err := WriteHLIndex(s.w, s.blocks, s.ctx, s.blockLen)
	if err != nil {
		return nil, xerrors.Errorf("receipt: write HLIndex: %w", err)
	}

	size64Block, err := WriteSize64(s.w, s.blocks, s.ctx, s.blockLen)
	if err != nil {
		return nil, xerrors.Errorf("receipt: write Size64: %w", err)
	}

	if info == nil {
		info = NewBomInfo()
	}
	for range vec.Components {
		info.AddPath()
	}
	bomInfoBlock, err := WriteBomInfo(s.w, s.blocks, info)
	if err != nil {
		return nil, xerrors.Errorf("receipt: write BomInfo: %w", err)
	}

	container := &bom.Container{Blocks: s.blocks, NamedBlocks: bom.NewNamedBlocks()}
	container.NamedBlocks.Insert("VIndex", s.vIndexBlock)
	container.NamedBlocks.Insert("HLIndex", hlIndexBlock)
	container.NamedBlocks.Insert("Paths", pathsBlock)
	container.NamedBlocks.Insert("Size64", size64Block)
	container.NamedBlocks.Insert("BomInfo", bomInfoBlock)

	if err := container.Write(s.w); err != nil {
		return nil, xerrors.Errorf("receipt: write container: %w", err)
	}
	return &Receipt{Paths: vec, BomInfo: info}, nil
}

// Reader holds a parsed container alongside the file bytes and context it
// was read with, so that metadata for individual path components can be
// looked up after the fact (lsbom's access pattern) without re-parsing.
type Reader struct {
	file      []byte
	container *bom.Container
	ctx       *Context
	Receipt   *Receipt
}

// Read parses a BOM container out of file and reconstructs the Receipt it
// describes, returning a Reader that can also resolve per-component
// metadata. Size64 and HLIndex are read into ctx before Paths, so that
// metadata reads along the way see the true sizes and hard-link names.
func Read(file []byte, ctx *Context) (*Reader, error) {
	ctx.Reset()
	container, err := bom.ReadContainer(file)
	if err != nil {
		return nil, xerrors.Errorf("receipt: read container: %w", err)
	}

	bomInfo := NewBomInfo()
	if index, ok := container.NamedBlocks.Get("BomInfo"); ok {
		bomInfo, err = ReadBomInfo(index, file, container.Blocks)
		if err != nil {
			return nil, xerrors.Errorf("receipt: read BomInfo: %w", err)
		}
	}

	if index, ok := container.NamedBlocks.Get("Size64"); ok {
		if err := ReadSize64(index, file, container.Blocks, ctx); err != nil {
			return nil, xerrors.Errorf("receipt: read Size64: %w", err)
		}
	}
	if index, ok := container.NamedBlocks.Get("HLIndex"); ok {
		if err := ReadHLIndex(index, file, container.Blocks, ctx); err != nil {
			return nil, xerrors.Errorf("receipt: read HLIndex: %w", err)
		}
	}

	paths := NewPathComponentVec()
	if index, ok := container.NamedBlocks.Get("Paths"); ok {
		paths, err = ReadPathComponentVec(index, file, container.Blocks)
		if err != nil {
			return nil, xerrors.Errorf("receipt: read Paths: %w", err)
		}
	}

	return &Reader{
		file:      file,
		container: container,
		ctx:       ctx,
		Receipt:   &Receipt{Paths: paths, BomInfo: bomInfo},
	}, nil
}

// Metadata resolves the metadata record for the path component named by
// seqNo.
func (r *Reader) Metadata(seqNo uint32) (*Metadata, error) {
	for _, c := range r.Receipt.Paths.Components {
		if c.SeqNo == seqNo {
			return ReadMetadataBlock(c.MetadataBlock, r.file, r.container.Blocks, r.ctx)
		}
	}
	return nil, ErrDanglingParent
}

// AlternateNames returns the hard-link alternate names recorded against
// the metadata block a path component's seqNo references, if any.
func (r *Reader) AlternateNames(seqNo uint32) []string {
	for _, c := range r.Receipt.Paths.Components {
		if c.SeqNo == seqNo {
			return r.ctx.HardLinks[c.MetadataBlock]
		}
	}
	return nil
}
