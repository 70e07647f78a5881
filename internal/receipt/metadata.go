package receipt

import (
	"io"

	"golang.org/x/xerrors"

	"stuckliste.dev/bom/internal/bom"
)

// Classification is the high nibble of a metadata record's flags field:
// whether write-time probing found this file to be a Mach-O binary, a fat
// binary, or neither.
type Classification uint8

const (
	ClassificationPlain Classification = 0
	ClassificationMachO Classification = 1
	ClassificationFat   Classification = 2
)

const metadataConst = 0x01

// Metadata is a variant-tagged per-file record. Which fields are
// meaningful depends on EntryType and, for files, Classification:
//   - file (plain): Checksum.
//   - file (Mach-O or fat): Checksum plus Arches.
//   - directory: no extra fields.
//   - link: Checksum plus LinkTarget.
//   - device: Rdev.
//
// Size holds the true (possibly >4 GiB) size; the codec only ever persists
// its low 32 bits directly, the same way the source format does — callers
// are responsible for recording the overflow in the Size64 side table (see
// Context) and for consulting it back on read.
type Metadata struct {
	EntryType      EntryType
	PathOnly       bool
	Classification Classification

	Mode  uint16
	UID   uint32
	GID   uint32
	Mtime uint32
	Size  uint64

	Checksum   uint32
	Arches     []ExecutableArch
	LinkTarget string
	Rdev       DeviceNumber
}

// WriteMetadata serializes m in the on-disk order: entry type, constant,
// flags, (if not path-only) the common block, the variant tail, and an
// eight-byte zero trailer.
func WriteMetadata(w io.Writer, m *Metadata) error {
	if err := bom.WriteU8(w, uint8(m.EntryType)); err != nil {
		return err
	}
	if err := bom.WriteU8(w, metadataConst); err != nil {
		return err
	}
	lowNibble := uint16(0xf)
	if m.PathOnly {
		lowNibble = 0
	}
	flags := uint16(m.Classification)<<12 | lowNibble
	if err := bom.WriteU16(w, flags); err != nil {
		return err
	}
	if m.PathOnly {
		return nil
	}

	if err := bom.WriteU16(w, m.Mode); err != nil {
		return err
	}
	if err := bom.WriteU32(w, m.UID); err != nil {
		return err
	}
	if err := bom.WriteU32(w, m.GID); err != nil {
		return err
	}
	if err := bom.WriteU32(w, m.Mtime); err != nil {
		return err
	}
	if err := bom.WriteU32(w, uint32(m.Size)); err != nil { // low 32 bits; true value lives in Size64 when it overflows
		return err
	}
	if err := bom.WriteU8(w, metadataConst); err != nil {
		return err
	}

	switch m.EntryType {
	case EntryFile:
		if err := bom.WriteU32(w, m.Checksum); err != nil {
			return err
		}
		if m.Classification != ClassificationPlain {
			if err := bom.WriteU8(w, metadataConst); err != nil {
				return err
			}
			if err := bom.WriteU32(w, uint32(len(m.Arches))); err != nil {
				return err
			}
			for _, a := range m.Arches {
				if err := bom.WriteU32(w, a.CPUType); err != nil {
					return err
				}
				if err := bom.WriteU32(w, a.CPUSubType); err != nil {
					return err
				}
				if err := bom.WriteU32(w, a.Size); err != nil {
					return err
				}
				if err := bom.WriteU32(w, a.Checksum); err != nil {
					return err
				}
			}
		}
	case EntryDirectory:
		// no tail
	case EntryLink:
		if err := bom.WriteU32(w, m.Checksum); err != nil {
			return err
		}
		target := m.LinkTarget + "\x00"
		if err := bom.WriteU32(w, uint32(len(target))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, target); err != nil {
			return xerrors.Errorf("receipt: write link target: %w", err)
		}
	case EntryDevice:
		if err := bom.WriteU32(w, uint32(m.Rdev)); err != nil {
			return err
		}
	default:
		return xerrors.Errorf("receipt: unknown entry type %d", m.EntryType)
	}

	_, err := w.Write(make([]byte, 8))
	if err != nil {
		return xerrors.Errorf("receipt: write metadata trailer: %w", err)
	}
	return nil
}

// ReadMetadata is the inverse of WriteMetadata. Size is populated from the
// low-32-bit field only; callers consult the Size64 side table to restore
// the true value for records written with an overflowing size.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	entryTypeRaw, err := bom.ReadU8(r)
	if err != nil {
		return nil, err
	}
	if _, err := bom.ReadU8(r); err != nil { // constant
		return nil, err
	}
	flags, err := bom.ReadU16(r)
	if err != nil {
		return nil, err
	}
	m := &Metadata{
		EntryType:      EntryType(entryTypeRaw),
		Classification: Classification((flags >> 12) & 0xf),
		PathOnly:       flags&0xf == 0,
	}
	if m.PathOnly {
		return m, nil
	}

	mode, err := bom.ReadU16(r)
	if err != nil {
		return nil, err
	}
	m.Mode = mode
	if m.UID, err = bom.ReadU32(r); err != nil {
		return nil, err
	}
	if m.GID, err = bom.ReadU32(r); err != nil {
		return nil, err
	}
	if m.Mtime, err = bom.ReadU32(r); err != nil {
		return nil, err
	}
	size32, err := bom.ReadU32(r)
	if err != nil {
		return nil, err
	}
	m.Size = uint64(size32)
	if _, err := bom.ReadU8(r); err != nil { // constant
		return nil, err
	}

	switch m.EntryType {
	case EntryFile:
		if m.Checksum, err = bom.ReadU32(r); err != nil {
			return nil, err
		}
		if m.Classification != ClassificationPlain {
			if _, err := bom.ReadU8(r); err != nil { // constant
				return nil, err
			}
			narches, err := bom.ReadU32(r)
			if err != nil {
				return nil, err
			}
			m.Arches = make([]ExecutableArch, 0, narches)
			for i := uint32(0); i < narches; i++ {
				var a ExecutableArch
				if a.CPUType, err = bom.ReadU32(r); err != nil {
					return nil, err
				}
				if a.CPUSubType, err = bom.ReadU32(r); err != nil {
					return nil, err
				}
				if a.Size, err = bom.ReadU32(r); err != nil {
					return nil, err
				}
				if a.Checksum, err = bom.ReadU32(r); err != nil {
					return nil, err
				}
				m.Arches = append(m.Arches, a)
			}
		}
	case EntryDirectory:
		// no tail
	case EntryLink:
		if m.Checksum, err = bom.ReadU32(r); err != nil {
			return nil, err
		}
		targetLen, err := bom.ReadU32(r)
		if err != nil {
			return nil, err
		}
		target := make([]byte, targetLen)
		if _, err := io.ReadFull(r, target); err != nil {
			return nil, xerrors.Errorf("receipt: read link target: %w", err)
		}
		m.LinkTarget = bom.ReadCString(target)
	case EntryDevice:
		rdev, err := bom.ReadU32(r)
		if err != nil {
			return nil, err
		}
		m.Rdev = DeviceNumber(rdev)
	default:
		return nil, xerrors.Errorf("receipt: unknown entry type %d", m.EntryType)
	}

	if _, err := io.CopyN(io.Discard, r, 8); err != nil {
		return nil, xerrors.Errorf("receipt: read metadata trailer: %w", err)
	}
	return m, nil
}
