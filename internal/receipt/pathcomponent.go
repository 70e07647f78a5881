package receipt

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/exp/slices"

	"stuckliste.dev/bom/internal/bom"
)

// PathComponent is a single named edge in the filesystem graph: parent
// names it by seq_no (0 for a root), and metadataBlock points at the
// already-written metadata record for whatever parent and name jointly
// identify.
type PathComponent struct {
	SeqNo         uint32
	Parent        uint32
	Name          string
	MetadataBlock uint32
}

// PathComponentVec is the flat, seq_no-ordered array the Paths tree
// serializes. Sequence numbers are assigned densely starting at 1, in the
// order components are added.
type PathComponentVec struct {
	Components []PathComponent
}

// NewPathComponentVec returns an empty vector.
func NewPathComponentVec() *PathComponentVec {
	return &PathComponentVec{}
}

// Add appends a new component, assigning it the next seq_no, and returns
// that number. metadataBlock is the block index of an already-written
// Metadata record (see WriteMetadataBlock): callers building a directory
// walk write each distinct file's metadata once and pass the same block
// index for every further path component that names the same inode (hard
// links), rather than writing metadata again.
func (v *PathComponentVec) Add(parent uint32, name string, metadataBlock uint32) uint32 {
	seqNo := uint32(len(v.Components)) + 1
	v.Components = append(v.Components, PathComponent{
		SeqNo:         seqNo,
		Parent:        parent,
		Name:          name,
		MetadataBlock: metadataBlock,
	})
	return seqNo
}

// Path reconstructs the full path of the component named by seqNo,
// walking parent pointers up to a root (parent == 0) and joining names
// from root to leaf with "/". Root components are named "." per the
// walk-time normalization, so the result already reads like "./a.txt".
func (v *PathComponentVec) Path(seqNo uint32) (string, error) {
	byID := v.indexBySeqNo()
	var parts []string
	visited := make(map[uint32]bool)
	cur := seqNo
	for cur != 0 {
		if visited[cur] {
			return "", bom.ErrLoop
		}
		visited[cur] = true
		c, ok := byID[cur]
		if !ok {
			return "", ErrDanglingParent
		}
		parts = append(parts, c.Name)
		cur = c.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/"), nil
}

func (v *PathComponentVec) indexBySeqNo() map[uint32]PathComponent {
	m := make(map[uint32]PathComponent, len(v.Components))
	for _, c := range v.Components {
		m[c.SeqNo] = c
	}
	return m
}

// WriteMetadataBlock writes m through the block store and returns its
// block index, ready to be referenced from a path component or reused
// across several components that share the same inode. If m.Size
// overflows the 32-bit common-block field, the true size is recorded
// against the new block index in ctx's Size64 side table.
func WriteMetadataBlock(w io.WriteSeeker, blocks *bom.Blocks, ctx *Context, m *Metadata) (uint32, error) {
	index, err := bom.WriteValueBlock(w, blocks, func(w io.Writer) error {
		return WriteMetadata(w, m)
	})
	if err != nil {
		return 0, err
	}
	if !m.PathOnly && m.Size > 0xffffffff {
		ctx.RecordSize64(index, m.Size)
	}
	return index, nil
}

// ReadMetadataBlock reads the metadata record at index, then overrides
// its Size with ctx's 64-bit side table if this block escaped the 32-bit
// common-block field on write.
func ReadMetadataBlock(index uint32, file []byte, blocks *bom.Blocks, ctx *Context) (*Metadata, error) {
	m, err := bom.ReadValueBlock(index, file, blocks, func(b []byte) (*Metadata, error) {
		return ReadMetadata(bytes.NewReader(b))
	})
	if err != nil {
		return nil, err
	}
	if size, ok := ctx.FileSize64[index]; ok {
		m.Size = size
	}
	return m, nil
}

// PathComponentsWriter builds the Paths tree incrementally: the walker
// that discovers a directory's entries feeds them to it one at a time, in
// walk order, which is also seq_no assignment order. That ordering is
// what lets a later entry that names the same inode as an earlier one
// (a hard link) reuse the earlier entry's metadata block index instead of
// writing its metadata a second time.
type PathComponentsWriter struct {
	w       io.WriteSeeker
	blocks  *bom.Blocks
	ctx     *Context
	vec     *PathComponentVec
	entries []bom.Entry
}

// NewPathComponentsWriter returns a writer that allocates blocks through w
// and blocks, recording side-table effects into ctx.
func NewPathComponentsWriter(w io.WriteSeeker, blocks *bom.Blocks, ctx *Context) *PathComponentsWriter {
	return &PathComponentsWriter{w: w, blocks: blocks, ctx: ctx, vec: NewPathComponentVec()}
}

// AddFile writes m's metadata fresh and appends a path component
// referencing it. Returns the new component's seq_no and the metadata
// block index; pass that block index to AddHardLink for any later
// component found to name the same inode.
func (pw *PathComponentsWriter) AddFile(parent uint32, name string, m *Metadata) (seqNo, metadataBlock uint32, err error) {
	metadataBlock, err = WriteMetadataBlock(pw.w, pw.blocks, pw.ctx, m)
	if err != nil {
		return 0, 0, err
	}
	seqNo, err = pw.addComponent(parent, name, metadataBlock)
	return seqNo, metadataBlock, err
}

// AddHardLink appends a path component that reuses an already-written
// metadata block from an earlier AddFile call, recording name in the
// context's hard-link side table.
func (pw *PathComponentsWriter) AddHardLink(parent uint32, name string, metadataBlock uint32) (uint32, error) {
	return pw.addComponent(parent, name, metadataBlock)
}

func (pw *PathComponentsWriter) addComponent(parent uint32, name string, metadataBlock uint32) (uint32, error) {
	seqNo := uint32(len(pw.vec.Components)) + 1
	keyIndex, err := bom.WriteValueBlock(pw.w, pw.blocks, func(w io.Writer) error {
		if err := bom.WriteU32(w, seqNo); err != nil {
			return err
		}
		return bom.WriteU32(w, metadataBlock)
	})
	if err != nil {
		return 0, err
	}
	valueIndex, err := bom.WriteValueBlock(pw.w, pw.blocks, func(w io.Writer) error {
		if err := bom.WriteU32(w, parent); err != nil {
			return err
		}
		_, err := io.WriteString(w, name+"\x00")
		return err
	})
	if err != nil {
		return 0, err
	}
	pw.ctx.RecordPathComponent(metadataBlock, name)
	pw.vec.Add(parent, name, metadataBlock)
	pw.entries = append(pw.entries, bom.Entry{First: keyIndex, Second: valueIndex})
	return seqNo, nil
}

// Finish writes the accumulated entries as a paged tree and returns its
// descriptor block index along with the finished vector.
func (pw *PathComponentsWriter) Finish(blockLen uint32) (uint32, *PathComponentVec, error) {
	descriptor, err := bom.WriteTree(pw.w, pw.blocks, pw.entries, blockLen)
	if err != nil {
		return 0, nil, err
	}
	return descriptor, pw.vec, nil
}

// ReadPathComponentVec reads the Paths tree at descriptorIndex and
// reassembles it into a PathComponentVec sorted by seq_no.
func ReadPathComponentVec(descriptorIndex uint32, file []byte, blocks *bom.Blocks) (*PathComponentVec, error) {
	entries, err := bom.ReadTree(descriptorIndex, file, blocks)
	if err != nil {
		return nil, err
	}
	components := make([]PathComponent, 0, len(entries))
	for _, e := range entries {
		keyBytes, err := blocks.Slice(e.First, file)
		if err != nil {
			return nil, err
		}
		keyReader := bytes.NewReader(keyBytes)
		seqNo, err := bom.ReadU32(keyReader)
		if err != nil {
			return nil, err
		}
		metadataBlock, err := bom.ReadU32(keyReader)
		if err != nil {
			return nil, err
		}

		valueBytes, err := blocks.Slice(e.Second, file)
		if err != nil {
			return nil, err
		}
		valueReader := bytes.NewReader(valueBytes)
		parent, err := bom.ReadU32(valueReader)
		if err != nil {
			return nil, err
		}
		name := bom.ReadCString(valueBytes[4:])

		components = append(components, PathComponent{
			SeqNo:         seqNo,
			Parent:        parent,
			Name:          name,
			MetadataBlock: metadataBlock,
		})
	}
	slices.SortFunc(components, func(a, b PathComponent) bool {
		return a.SeqNo < b.SeqNo
	})
	return &PathComponentVec{Components: components}, nil
}
