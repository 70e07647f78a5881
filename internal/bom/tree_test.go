package bom

import (
	"io"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orcaman/writerseeker"
)

func buildAndReadTree(t *testing.T, numEntries int, blockLen uint32) []Entry {
	t.Helper()
	var ws writerseeker.WriterSeeker
	blocks := NewBlocks()

	var entries []Entry
	for i := 0; i < numEntries; i++ {
		keyIdx, err := WriteU32Block(&ws, blocks, uint32(i))
		if err != nil {
			t.Fatalf("WriteU32Block(key): %v", err)
		}
		valueIdx, err := WriteU32Block(&ws, blocks, uint32(i*2))
		if err != nil {
			t.Fatalf("WriteU32Block(value): %v", err)
		}
		entries = append(entries, Entry{First: keyIdx, Second: valueIdx})
	}

	descriptor, err := WriteTree(&ws, blocks, entries, blockLen)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}

	got, err := ReadTree(descriptor, file, blocks)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}

	sort.Slice(got, func(i, j int) bool { return got[i].First < got[j].First })
	sort.Slice(entries, func(i, j int) bool { return entries[i].First < entries[j].First })
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	return got
}

func TestTreeSingleDataNode(t *testing.T) {
	buildAndReadTree(t, 3, 4096)
}

func TestTreeEmpty(t *testing.T) {
	buildAndReadTree(t, 0, 4096)
}

func TestTreeSingleMetaLevel(t *testing.T) {
	// with a small block length, maxEntriesPerBlock(28) = (28-12)/8 = 2,
	// so 4 entries fill two data nodes, which fit under one meta node.
	buildAndReadTree(t, 4, 28)
}

func TestTreeMultipleMetaLevels(t *testing.T) {
	// with n=2 per node, 25 leaf entries need 13 data nodes; 13 data nodes
	// need 7 meta nodes (ceil(13/2)); those need further levels above
	// (ceil(7/2)=4, ceil(4/2)=2, then ceil(2/2)=1) -- exercises the
	// recursive multi-level climb the original implementation leaves
	// unimplemented.
	buildAndReadTree(t, 25, 28)
}

func TestMaxEntriesPerBlock(t *testing.T) {
	if got := maxEntriesPerBlock(4096); got != (4096-12)/8 {
		t.Errorf("maxEntriesPerBlock(4096) = %d, want %d", got, (4096-12)/8)
	}
}
