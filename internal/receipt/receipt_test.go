package receipt

import (
	"io"
	"testing"

	"github.com/orcaman/writerseeker"
)

func TestReceiptEmpty(t *testing.T) {
	var ws writerseeker.WriterSeeker
	b := NewBuilder()
	session, err := b.NewSession(&ws)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := session.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	reader, err := Read(file, NewContext())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := len(reader.Receipt.Paths.Components); got != 0 {
		t.Errorf("len(Paths.Components) = %d, want 0", got)
	}
	if reader.Receipt.BomInfo.NumPaths != 0 {
		t.Errorf("BomInfo.NumPaths = %d, want 0", reader.Receipt.BomInfo.NumPaths)
	}
}

func TestReceiptSingleRegularFile(t *testing.T) {
	var ws writerseeker.WriterSeeker
	b := NewBuilder()
	session, err := b.NewSession(&ws)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	rootSeq, _, err := session.AddFile(0, ".", BuildDirectoryMetadata(0o755, 0, 0, 0))
	if err != nil {
		t.Fatalf("AddFile(root): %v", err)
	}
	content := []byte("hello")
	if _, _, err := session.AddFile(rootSeq, "a.txt", BuildFileMetadata(0o644, 0, 0, 0, content, uint64(len(content)))); err != nil {
		t.Fatalf("AddFile(a.txt): %v", err)
	}
	if _, err := session.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	reader, err := Read(file, NewContext())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(reader.Receipt.Paths.Components) != 2 {
		t.Fatalf("len(Paths.Components) = %d, want 2", len(reader.Receipt.Paths.Components))
	}
	path, err := reader.Receipt.Paths.Path(2)
	if err != nil {
		t.Fatalf("Path(2): %v", err)
	}
	if path != "./a.txt" {
		t.Errorf("Path(2) = %q, want %q", path, "./a.txt")
	}
	m, err := reader.Metadata(2)
	if err != nil {
		t.Fatalf("Metadata(2): %v", err)
	}
	if m.Size != 5 {
		t.Errorf("Size = %d, want 5", m.Size)
	}
	if m.Checksum != 0x3610a686 {
		t.Errorf("Checksum = %#x, want 0x3610a686", m.Checksum)
	}
	if reader.Receipt.BomInfo.NumPaths != 2 {
		t.Errorf("BomInfo.NumPaths = %d, want 2", reader.Receipt.BomInfo.NumPaths)
	}
}

func TestReceiptSymlink(t *testing.T) {
	var ws writerseeker.WriterSeeker
	b := NewBuilder()
	session, err := b.NewSession(&ws)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	rootSeq, _, err := session.AddFile(0, ".", BuildDirectoryMetadata(0o755, 0, 0, 0))
	if err != nil {
		t.Fatalf("AddFile(root): %v", err)
	}
	if _, _, err := session.AddFile(rootSeq, "link", BuildLinkMetadata(0o777, 0, 0, 0, "target/name")); err != nil {
		t.Fatalf("AddFile(link): %v", err)
	}
	if _, err := session.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	reader, err := Read(file, NewContext())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m, err := reader.Metadata(2)
	if err != nil {
		t.Fatalf("Metadata(2): %v", err)
	}
	if m.LinkTarget != "target/name" {
		t.Errorf("LinkTarget = %q, want %q", m.LinkTarget, "target/name")
	}
	if m.Size != 11 {
		t.Errorf("Size = %d, want 11", m.Size)
	}
}

func TestReceiptLargeFileEscape(t *testing.T) {
	var ws writerseeker.WriterSeeker
	b := NewBuilder()
	session, err := b.NewSession(&ws)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	const trueSize = uint64(1) << 32 // u32::MAX + 1
	meta := BuildFileMetadata(0o644, 0, 0, 0, []byte("x"), trueSize)
	seq, _, err := session.AddFile(0, ".", meta)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if _, err := session.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	reader, err := Read(file, NewContext())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m, err := reader.Metadata(seq)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if m.Size != trueSize {
		t.Errorf("Size = %d, want %d", m.Size, trueSize)
	}
}

func TestReceiptHardLinkPair(t *testing.T) {
	var ws writerseeker.WriterSeeker
	b := NewBuilder()
	session, err := b.NewSession(&ws)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	content := []byte("shared")
	seqA, metadataBlock, err := session.AddFile(0, "./a", BuildFileMetadata(0o644, 0, 0, 0, content, uint64(len(content))))
	if err != nil {
		t.Fatalf("AddFile(a): %v", err)
	}
	if _, err := session.AddHardLink(0, "./b", metadataBlock); err != nil {
		t.Fatalf("AddHardLink(b): %v", err)
	}
	if _, err := session.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	reader, err := Read(file, NewContext())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	names := reader.AlternateNames(seqA)
	if len(names) != 1 || names[0] != "./b" {
		t.Errorf("AlternateNames(a) = %v, want [./b]", names)
	}
}

func TestReceiptPathsOnly(t *testing.T) {
	var ws writerseeker.WriterSeeker
	b := NewBuilder().WithPathsOnly()
	session, err := b.NewSession(&ws)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	rootSeq, _, err := session.AddFile(0, ".", PathsOnly(EntryDirectory))
	if err != nil {
		t.Fatalf("AddFile(root): %v", err)
	}
	fileSeq, _, err := session.AddFile(rootSeq, "a.txt", PathsOnly(EntryFile))
	if err != nil {
		t.Fatalf("AddFile(a.txt): %v", err)
	}
	if _, err := session.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	file, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatalf("BytesReader: %v", err)
	}
	reader, err := Read(file, NewContext())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m, err := reader.Metadata(fileSeq)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if !m.PathOnly || m.Mode != 0 || m.UID != 0 || m.Size != 0 || m.Checksum != 0 {
		t.Errorf("paths-only metadata = %+v, want all-zero except EntryType/PathOnly", m)
	}
	if m.EntryType != EntryFile {
		t.Errorf("EntryType = %v, want EntryFile", m.EntryType)
	}
}
