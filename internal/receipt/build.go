package receipt

import "hash/crc32"

// This file builds Metadata values from already-read file content rather
// than touching the filesystem itself: walking a directory and running
// stat/lstat is cmd/mkbom's job. These helpers only need bytes the caller
// already has in hand, keeping the core synchronous and testable without
// a real filesystem.

// Checksum returns the CRC-32 (IEEE) of data, the checksum variant every
// metadata record with a Checksum field stores.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// BuildFileMetadata builds the metadata for a regular file from its
// contents. If the content looks like a Mach-O or fat binary, the record
// is classified as an executable and carries per-architecture size and
// checksum entries in addition to the whole-file checksum.
func BuildFileMetadata(mode uint16, uid, gid, mtime uint32, content []byte, trueSize uint64) *Metadata {
	m := &Metadata{
		EntryType: EntryFile,
		Mode:      mode,
		UID:       uid,
		GID:       gid,
		Mtime:     mtime,
		Size:      trueSize,
	}
	if arches, ok := ClassifyExecutable(content, Checksum); ok {
		if len(arches) > 1 {
			m.Classification = ClassificationFat
		} else {
			m.Classification = ClassificationMachO
		}
		m.Arches = arches
		m.Checksum = Checksum(content)
		return m
	}
	m.Classification = ClassificationPlain
	m.Checksum = Checksum(content)
	return m
}

// BuildDirectoryMetadata builds the metadata for a directory.
func BuildDirectoryMetadata(mode uint16, uid, gid, mtime uint32) *Metadata {
	return &Metadata{
		EntryType: EntryDirectory,
		Mode:      mode,
		UID:       uid,
		GID:       gid,
		Mtime:     mtime,
	}
}

// BuildLinkMetadata builds the metadata for a symlink from its target.
// target's checksum and size are computed over the target bytes, not
// NUL-terminated; WriteMetadata adds the terminator and length-including-NUL
// field itself.
func BuildLinkMetadata(mode uint16, uid, gid, mtime uint32, target string) *Metadata {
	return &Metadata{
		EntryType:  EntryLink,
		Mode:       mode,
		UID:        uid,
		GID:        gid,
		Mtime:      mtime,
		Size:       uint64(len(target)),
		Checksum:   Checksum([]byte(target)),
		LinkTarget: target,
	}
}

// BuildDeviceMetadata builds the metadata for a character or block
// device node.
func BuildDeviceMetadata(mode uint16, uid, gid, mtime uint32, rdev DeviceNumber) *Metadata {
	return &Metadata{
		EntryType: EntryDevice,
		Mode:      mode,
		UID:       uid,
		GID:       gid,
		Mtime:     mtime,
		Rdev:      rdev,
	}
}

// PathsOnly returns a record carrying only entryType, the way "paths-only"
// receipts record entries: entry_type is kept, flags' low nibble is
// cleared, and nothing else is emitted.
func PathsOnly(entryType EntryType) *Metadata {
	return &Metadata{EntryType: entryType, PathOnly: true}
}
