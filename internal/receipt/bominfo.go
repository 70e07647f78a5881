package receipt

import (
	"bytes"
	"io"

	"golang.org/x/exp/slices"

	"stuckliste.dev/bom/internal/bom"
)

// BomInfo is the receipt's statistics record: the total path count plus,
// for executable and fat-binary entries, a per-CPU-type running size
// total. Both counters are 32-bit and wrap modulo 2^32 on overflow,
// matching the reference implementation.
type BomInfo struct {
	NumPaths uint32
	CPUSizes map[uint32]uint32
}

// NewBomInfo returns a zeroed statistics record.
func NewBomInfo() *BomInfo {
	return &BomInfo{CPUSizes: make(map[uint32]uint32)}
}

// AddPath increments the path count by one, wrapping on overflow.
func (b *BomInfo) AddPath() {
	b.NumPaths++
}

// AddArch adds size to the running total for cpuType, wrapping on
// overflow.
func (b *BomInfo) AddArch(cpuType uint32, size uint32) {
	b.CPUSizes[cpuType] += size
}

// WriteBomInfo serializes info as a single block: path count, entry
// count, then entries in cpu_type order (for deterministic output).
func WriteBomInfo(w io.WriteSeeker, blocks *bom.Blocks, info *BomInfo) (uint32, error) {
	return bom.WriteValueBlock(w, blocks, func(w io.Writer) error {
		if err := bom.WriteU32(w, info.NumPaths); err != nil {
			return err
		}
		if err := bom.WriteU32(w, uint32(len(info.CPUSizes))); err != nil {
			return err
		}
		cpuTypes := make([]uint32, 0, len(info.CPUSizes))
		for cpuType := range info.CPUSizes {
			cpuTypes = append(cpuTypes, cpuType)
		}
		slices.Sort(cpuTypes)
		for _, cpuType := range cpuTypes {
			if err := bom.WriteU32(w, cpuType); err != nil {
				return err
			}
			if err := bom.WriteU32(w, info.CPUSizes[cpuType]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadBomInfo is the inverse of WriteBomInfo.
func ReadBomInfo(index uint32, file []byte, blocks *bom.Blocks) (*BomInfo, error) {
	return bom.ReadValueBlock(index, file, blocks, func(b []byte) (*BomInfo, error) {
		r := bytes.NewReader(b)
		numPaths, err := bom.ReadU32(r)
		if err != nil {
			return nil, err
		}
		count, err := bom.ReadU32(r)
		if err != nil {
			return nil, err
		}
		info := &BomInfo{NumPaths: numPaths, CPUSizes: make(map[uint32]uint32, count)}
		for i := uint32(0); i < count; i++ {
			cpuType, err := bom.ReadU32(r)
			if err != nil {
				return nil, err
			}
			size, err := bom.ReadU32(r)
			if err != nil {
				return nil, err
			}
			info.CPUSizes[cpuType] = size
		}
		return info, nil
	})
}
