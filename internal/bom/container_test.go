package bom

import (
	"io"
	"testing"

	"github.com/orcaman/writerseeker"
)

func TestContainerRoundTrip(t *testing.T) {
	var ws writerseeker.WriterSeeker
	c := NewContainer()

	if _, err := ws.Seek(HeaderLen, io.SeekStart); err != nil {
		t.Fatalf("reserve header: %v", err)
	}
	idx, err := c.Blocks.Append(&ws, func(w writeSeeker) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	c.NamedBlocks.Insert("Paths", idx)

	if err := c.Write(&ws); err != nil {
		t.Fatalf("Write: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}

	got, err := ReadContainer(file)
	if err != nil {
		t.Fatalf("ReadContainer: %v", err)
	}
	gotIdx, ok := got.NamedBlocks.Get("Paths")
	if !ok || gotIdx != idx {
		t.Fatalf("NamedBlocks.Get(Paths) = (%d, %v), want (%d, true)", gotIdx, ok, idx)
	}
	payload, err := got.Blocks.Slice(gotIdx, file)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if string(payload) != "payload" {
		t.Fatalf("payload = %q, want %q", payload, "payload")
	}
}

func TestReadContainerRejectsBadMagic(t *testing.T) {
	file := make([]byte, HeaderLen)
	copy(file, "NOTABOM!")
	if _, err := ReadContainer(file); err != ErrNotABomStore {
		t.Fatalf("err = %v, want ErrNotABomStore", err)
	}
}

func TestReadContainerRejectsTruncated(t *testing.T) {
	if _, err := ReadContainer(make([]byte, 10)); err != ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}
