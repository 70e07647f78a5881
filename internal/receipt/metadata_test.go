package receipt

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetadataRoundTripFile(t *testing.T) {
	m := &Metadata{
		EntryType:      EntryFile,
		Classification: ClassificationPlain,
		Mode:           0o644,
		UID:            501,
		GID:            20,
		Mtime:          1700000000,
		Size:           5,
		Checksum:       0x3610a686,
	}
	var buf bytes.Buffer
	if err := WriteMetadata(&buf, m); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	got, err := ReadMetadata(&buf)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadataRoundTripLink(t *testing.T) {
	m := &Metadata{
		EntryType:      EntryLink,
		Classification: ClassificationPlain,
		Mode:           0o777,
		Size:           11,
		Checksum:       Checksum([]byte("target/name")),
		LinkTarget:     "target/name",
	}
	var buf bytes.Buffer
	if err := WriteMetadata(&buf, m); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	got, err := ReadMetadata(&buf)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadataRoundTripDevice(t *testing.T) {
	m := &Metadata{
		EntryType: EntryDevice,
		Mode:      0o20666,
		Rdev:      NewDeviceNumber(8, 1),
	}
	var buf bytes.Buffer
	if err := WriteMetadata(&buf, m); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	got, err := ReadMetadata(&buf)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if got.Rdev.Major() != 8 || got.Rdev.Minor() != 1 {
		t.Errorf("Rdev major/minor = %d/%d, want 8/1", got.Rdev.Major(), got.Rdev.Minor())
	}
}

func TestMetadataPathOnly(t *testing.T) {
	m := PathsOnly(EntryFile)
	var buf bytes.Buffer
	if err := WriteMetadata(&buf, m); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if buf.Len() != 4 {
		t.Fatalf("path-only record length = %d, want 4", buf.Len())
	}
	got, err := ReadMetadata(&buf)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceNumberRoundTrip(t *testing.T) {
	for _, tc := range []struct{ major, minor uint32 }{
		{0, 0}, {1, 0}, {0, 1}, {255, 0xffffff}, {8, 1},
	} {
		d := NewDeviceNumber(tc.major, tc.minor)
		if d.Major() != tc.major || d.Minor() != tc.minor {
			t.Errorf("NewDeviceNumber(%d, %d) round-trip = %d/%d", tc.major, tc.minor, d.Major(), d.Minor())
		}
	}
}
