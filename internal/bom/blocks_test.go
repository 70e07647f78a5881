package bom

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orcaman/writerseeker"
)

func TestBlocksAppendAndSlice(t *testing.T) {
	var ws writerseeker.WriterSeeker
	blocks := NewBlocks()

	idx, err := blocks.Append(&ws, func(w writeSeeker) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if idx != 1 {
		t.Fatalf("index = %d, want 1 (index 0 is reserved for the null block)", idx)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	got, err := blocks.Slice(idx, file)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Slice = %q, want %q", got, "hello")
	}
}

func TestBlocksRoundTrip(t *testing.T) {
	var ws writerseeker.WriterSeeker
	blocks := NewBlocks()
	if _, err := blocks.Append(&ws, func(w writeSeeker) error {
		_, err := w.Write([]byte("abc"))
		return err
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := blocks.AppendNull(&ws); err != nil {
		t.Fatalf("AppendNull: %v", err)
	}

	var buf bytes.Buffer
	if err := blocks.WriteBE(&buf); err != nil {
		t.Fatalf("WriteBE: %v", err)
	}
	got, err := ReadBlocksBE(&buf)
	if err != nil {
		t.Fatalf("ReadBlocksBE: %v", err)
	}
	if diff := cmp.Diff(blocks.blocks, got.blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(blocks.nullBlocks, got.nullBlocks); diff != "" {
		t.Errorf("null blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestBlocksInvalidIndex(t *testing.T) {
	blocks := NewBlocks()
	if _, err := blocks.Slice(42, nil); err != ErrInvalidBlockIndex {
		t.Fatalf("Slice(42) err = %v, want ErrInvalidBlockIndex", err)
	}
}
