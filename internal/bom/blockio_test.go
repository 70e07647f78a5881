package bom

import (
	"io"
	"testing"

	"github.com/orcaman/writerseeker"
)

func TestPointerBlockPresentAndAbsent(t *testing.T) {
	var ws writerseeker.WriterSeeker
	blocks := NewBlocks()

	valueIdx, err := WriteU32Block(&ws, blocks, 42)
	if err != nil {
		t.Fatalf("WriteU32Block: %v", err)
	}
	presentPtr, err := WritePointerBlock(&ws, blocks, valueIdx)
	if err != nil {
		t.Fatalf("WritePointerBlock: %v", err)
	}
	absentPtr, err := WriteNullPointerBlock(&ws, blocks)
	if err != nil {
		t.Fatalf("WriteNullPointerBlock: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}

	gotIdx, present, err := ReadPointerBlock(presentPtr, file, blocks)
	if err != nil {
		t.Fatalf("ReadPointerBlock(present): %v", err)
	}
	if !present || gotIdx != valueIdx {
		t.Fatalf("ReadPointerBlock(present) = (%d, %v), want (%d, true)", gotIdx, present, valueIdx)
	}

	_, present, err = ReadPointerBlock(absentPtr, file, blocks)
	if err != nil {
		t.Fatalf("ReadPointerBlock(absent): %v", err)
	}
	if present {
		t.Fatalf("ReadPointerBlock(absent) reported present")
	}
}

func TestCStringBlockRoundTrip(t *testing.T) {
	var ws writerseeker.WriterSeeker
	blocks := NewBlocks()

	idx, err := WriteCStringBlock(&ws, blocks, "hello")
	if err != nil {
		t.Fatalf("WriteCStringBlock: %v", err)
	}
	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	got, err := ReadCStringBlock(idx, file, blocks)
	if err != nil {
		t.Fatalf("ReadCStringBlock: %v", err)
	}
	if got != "hello" {
		t.Fatalf("ReadCStringBlock = %q, want %q", got, "hello")
	}
}
