package receipt

import "encoding/binary"

// Mach-O and fat-binary magic numbers, the handful of header fields the
// metadata codec needs to classify a regular file as an executable.
const (
	machMagic32   = 0xfeedface
	machCigam32   = 0xcefaedfe
	machMagic64   = 0xfeedfacf
	machCigam64   = 0xcffaedfe
	fatMagic      = 0xcafebabe
	fatMagic64    = 0xcafebabf
	fatCigam      = 0xbebafeca
)

// ExecutableArch is one architecture slice of an executable: its Mach
// cpu_type_t/cpu_subtype_t, its size in bytes, and the CRC-32 of that slice.
type ExecutableArch struct {
	CPUType    uint32
	CPUSubType uint32
	Size       uint32
	Checksum   uint32
}

// ClassifyExecutable inspects the first bytes of data (a whole file already
// read into memory) and, if it looks like a Mach-O binary or a fat binary,
// returns its per-architecture descriptors. crc32Of computes the checksum
// of a byte range; it exists as a parameter so callers can share one CRC
// implementation (hash/crc32, per the core's checksum codec) across both
// whole-file and per-slice checksums.
func ClassifyExecutable(data []byte, crc32Of func([]byte) uint32) ([]ExecutableArch, bool) {
	if len(data) < 8 {
		return nil, false
	}
	magic := binary.BigEndian.Uint32(data[:4])
	switch magic {
	case fatMagic, fatMagic64, fatCigam:
		return classifyFat(data, magic, crc32Of)
	}
	magicLE := binary.LittleEndian.Uint32(data[:4])
	switch magicLE {
	case machMagic32, machMagic64:
		cpuType := binary.LittleEndian.Uint32(data[4:8])
		var cpuSubType uint32
		if len(data) >= 12 {
			cpuSubType = binary.LittleEndian.Uint32(data[8:12])
		}
		return []ExecutableArch{{
			CPUType:    cpuType,
			CPUSubType: cpuSubType,
			Size:       uint32(len(data)),
			Checksum:   crc32Of(data),
		}}, true
	case machCigam32, machCigam64:
		cpuType := binary.BigEndian.Uint32(data[4:8])
		var cpuSubType uint32
		if len(data) >= 12 {
			cpuSubType = binary.BigEndian.Uint32(data[8:12])
		}
		return []ExecutableArch{{
			CPUType:    cpuType,
			CPUSubType: cpuSubType,
			Size:       uint32(len(data)),
			Checksum:   crc32Of(data),
		}}, true
	}
	return nil, false
}

func classifyFat(data []byte, magic uint32, crc32Of func([]byte) uint32) ([]ExecutableArch, bool) {
	if len(data) < 8 {
		return nil, false
	}
	numArches := binary.BigEndian.Uint32(data[4:8])
	is64 := magic == fatMagic64
	archRecordLen := 20 // cpu_type, cpu_subtype, offset, size, align (all u32)
	if is64 {
		archRecordLen = 32 // cpu_type, cpu_subtype, offset u64, size u64, align u32, reserved u32
	}
	offset := 8
	var arches []ExecutableArch
	for i := uint32(0); i < numArches; i++ {
		if offset+archRecordLen > len(data) {
			break
		}
		rec := data[offset : offset+archRecordLen]
		cpuType := binary.BigEndian.Uint32(rec[0:4])
		cpuSubType := binary.BigEndian.Uint32(rec[4:8])
		var sliceOffset, sliceSize uint64
		if is64 {
			sliceOffset = binary.BigEndian.Uint64(rec[8:16])
			sliceSize = binary.BigEndian.Uint64(rec[16:24])
		} else {
			sliceOffset = uint64(binary.BigEndian.Uint32(rec[8:12]))
			sliceSize = uint64(binary.BigEndian.Uint32(rec[12:16]))
		}
		offset += archRecordLen

		start := int(sliceOffset)
		end := start + int(sliceSize)
		if start < 0 || end > len(data) || start > end {
			continue
		}
		slice := data[start:end]
		arches = append(arches, ExecutableArch{
			CPUType:    cpuType,
			CPUSubType: cpuSubType,
			Size:       uint32(len(slice)), // truncates above 4 GiB, a known limitation of the 32-bit size field
			Checksum:   crc32Of(slice),
		})
	}
	return arches, len(arches) > 0
}
