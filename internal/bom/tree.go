package bom

import (
	"bytes"
	"io"

	"golang.org/x/xerrors"
)

// Tree is the paged key/value container: a persistent structure with data
// nodes (leaves, holding (key block, value block) pairs) and meta nodes
// (holding (child block, last-value block) pairs), linked by a tree
// descriptor block.
//
// Keys and values are themselves already-written block indices: callers
// write the actual key and value payloads through the block I/O helpers in
// blockio.go first, then hand the resulting index pairs to WriteTree.

const (
	nodeHeaderLen = 12 // is_data u16, count u16, next u32, prev u32
	entryLen      = 8  // two u32
)

var treeMagic = []byte("tree")

// Entry is one (key block, value block) pair stored in a data node, or one
// (child block, last-value block) pair stored in a meta node.
type Entry struct {
	First  uint32
	Second uint32
}

func maxEntriesPerBlock(blockLen uint32) int {
	if blockLen < nodeHeaderLen {
		return 0
	}
	return int((blockLen - nodeHeaderLen) / entryLen)
}

// WriteTree serializes entries as a paged tree with the given per-node
// block length and returns the block index of the tree descriptor.
func WriteTree(w writeSeeker, blocks *Blocks, entries []Entry, blockLen uint32) (uint32, error) {
	n := maxEntriesPerBlock(blockLen)
	if n <= 0 {
		return 0, xerrors.New("bom: tree block length too small")
	}

	rootIndex, err := buildDataLevel(w, blocks, entries, blockLen, n)
	if err != nil {
		return 0, err
	}

	return blocks.Append(w, func(w writeSeeker) error {
		if _, err := w.Write(treeMagic); err != nil {
			return err
		}
		if err := WriteU32(w, 1); err != nil {
			return err
		}
		if err := WriteU32(w, rootIndex); err != nil {
			return err
		}
		if err := WriteU32(w, blockLen); err != nil {
			return err
		}
		if err := WriteU32(w, uint32(len(entries))); err != nil {
			return err
		}
		return WriteU8(w, 0)
	})
}

// buildDataLevel writes the data (leaf) level and, if more than one data
// node is needed, climbs as many meta levels as it takes to converge on a
// single root node.
func buildDataLevel(w writeSeeker, blocks *Blocks, entries []Entry, blockLen uint32, n int) (uint32, error) {
	if len(entries) <= n {
		return writeNode(w, blocks, true, entries, blockLen)
	}

	chunks := chunkEntries(entries, n)
	nodeRefs := make([]Entry, 0, len(chunks))
	for _, c := range chunks {
		idx, err := writeNode(w, blocks, true, c, blockLen)
		if err != nil {
			return 0, err
		}
		nodeRefs = append(nodeRefs, Entry{First: idx, Second: c[len(c)-1].Second})
	}
	return buildMetaLevels(w, blocks, nodeRefs, blockLen, n)
}

// buildMetaLevels groups node references into meta-node-sized chunks,
// sibling-links the members of each chunk (they share the meta node being
// built as their parent), and recurses until a single node remains.
func buildMetaLevels(w writeSeeker, blocks *Blocks, nodeRefs []Entry, blockLen uint32, n int) (uint32, error) {
	groups := chunkEntries(nodeRefs, n)
	for _, g := range groups {
		if err := linkSiblings(w, blocks, g); err != nil {
			return 0, err
		}
	}
	if len(groups) == 1 {
		return writeNode(w, blocks, false, nodeRefs, blockLen)
	}
	parentRefs := make([]Entry, 0, len(groups))
	for _, g := range groups {
		idx, err := writeNode(w, blocks, false, g, blockLen)
		if err != nil {
			return 0, err
		}
		parentRefs = append(parentRefs, Entry{First: idx, Second: g[len(g)-1].Second})
	}
	return buildMetaLevels(w, blocks, parentRefs, blockLen, n)
}

func chunkEntries(entries []Entry, n int) [][]Entry {
	var chunks [][]Entry
	for len(entries) > 0 {
		size := n
		if size > len(entries) {
			size = len(entries)
		}
		chunks = append(chunks, entries[:size])
		entries = entries[size:]
	}
	if len(chunks) == 0 {
		chunks = append(chunks, nil)
	}
	return chunks
}

// writeNode allocates a new block holding a data or meta node: header,
// entries, and zero padding out to exactly blockLen bytes. next/prev are
// written as zero placeholders; linkSiblings patches them afterward.
func writeNode(w writeSeeker, blocks *Blocks, isData bool, entries []Entry, blockLen uint32) (uint32, error) {
	if len(entries) > 0xffff {
		return 0, ErrTooManyEntries
	}
	payload := nodeHeaderLen + len(entries)*entryLen
	if uint32(payload) > blockLen {
		return 0, xerrors.New("bom: node payload exceeds block length")
	}
	return blocks.Append(w, func(w writeSeeker) error {
		isDataFlag := uint16(0)
		if isData {
			isDataFlag = 1
		}
		if err := WriteU16(w, isDataFlag); err != nil {
			return err
		}
		if err := WriteU16(w, uint16(len(entries))); err != nil {
			return err
		}
		if err := WriteU32(w, 0); err != nil { // next, patched later
			return err
		}
		if err := WriteU32(w, 0); err != nil { // prev, patched later
			return err
		}
		for _, e := range entries {
			if err := WriteU32(w, e.First); err != nil {
				return err
			}
			if err := WriteU32(w, e.Second); err != nil {
				return err
			}
		}
		padding := int(blockLen) - payload
		if padding > 0 {
			if _, err := w.Write(make([]byte, padding)); err != nil {
				return err
			}
		}
		return nil
	})
}

// linkSiblings patches the next/prev fields of the nodes in g, which all
// share the same parent: g[i].next = g[i+1], g[i].prev = g[i-1], with zero
// at the endpoints.
func linkSiblings(w writeSeeker, blocks *Blocks, g []Entry) error {
	if len(g) < 2 {
		return nil
	}
	tail, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("bom: link siblings: %w", err)
	}
	for i, ref := range g {
		block, err := blocks.BlockAt(ref.First)
		if err != nil {
			return err
		}
		var next, prev uint32
		if i+1 < len(g) {
			next = g[i+1].First
		}
		if i > 0 {
			prev = g[i-1].First
		}
		if _, err := w.Seek(int64(block.Offset)+4, io.SeekStart); err != nil {
			return xerrors.Errorf("bom: link siblings: %w", err)
		}
		if err := WriteU32(w, next); err != nil {
			return err
		}
		if err := WriteU32(w, prev); err != nil {
			return err
		}
	}
	if _, err := w.Seek(tail, io.SeekStart); err != nil {
		return xerrors.Errorf("bom: link siblings: %w", err)
	}
	return nil
}

type treeNode struct {
	isData bool
	next   uint32
	prev   uint32
	entries []Entry
}

func readNode(index uint32, file []byte, blocks *Blocks) (treeNode, error) {
	b, err := blocks.Slice(index, file)
	if err != nil {
		return treeNode{}, err
	}
	r := bytes.NewReader(b)
	isDataFlag, err := ReadU16(r)
	if err != nil {
		return treeNode{}, err
	}
	count, err := ReadU16(r)
	if err != nil {
		return treeNode{}, err
	}
	next, err := ReadU32(r)
	if err != nil {
		return treeNode{}, err
	}
	prev, err := ReadU32(r)
	if err != nil {
		return treeNode{}, err
	}
	entries := make([]Entry, 0, count)
	for i := uint16(0); i < count; i++ {
		first, err := ReadU32(r)
		if err != nil {
			return treeNode{}, err
		}
		second, err := ReadU32(r)
		if err != nil {
			return treeNode{}, err
		}
		entries = append(entries, Entry{First: first, Second: second})
	}
	return treeNode{isData: isDataFlag == 1, next: next, prev: prev, entries: entries}, nil
}

// ReadTree parses the tree descriptor at descriptorIndex and walks the tree
// breadth-first, returning the leaf (key block, value block) pairs in
// breadth-first concatenation order. Callers that need a particular order
// (e.g. by seq_no) must re-sort.
func ReadTree(descriptorIndex uint32, file []byte, blocks *Blocks) ([]Entry, error) {
	b, err := blocks.Slice(descriptorIndex, file)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(b)
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, xerrors.Errorf("bom: read tree descriptor: %w", err)
	}
	if !bytes.Equal(gotMagic[:], treeMagic) {
		return nil, xerrors.Errorf("bom: read tree descriptor: %w", ErrNotABomStore)
	}
	version, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, ErrUnsupportedVersion
	}
	root, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ReadU32(r); err != nil { // block_len, not needed to walk
		return nil, err
	}
	if _, err := ReadU32(r); err != nil { // declared entry count, not enforced on read
		return nil, err
	}

	var result []Entry
	visited := map[uint32]bool{}
	queue := []uint32{root}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		node, err := readNode(idx, file, blocks)
		if err != nil {
			return nil, xerrors.Errorf("bom: read tree node %d: %w", idx, err)
		}
		if node.isData {
			result = append(result, node.entries...)
		} else {
			for _, e := range node.entries {
				if !visited[e.First] {
					queue = append(queue, e.First)
				}
			}
		}
		if node.next != 0 && !visited[node.next] {
			queue = append(queue, node.next)
		}
		if node.prev != 0 && !visited[node.prev] {
			queue = append(queue, node.prev)
		}
	}
	return result, nil
}
