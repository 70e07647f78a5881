package receipt

import (
	"bytes"
	"io"

	"stuckliste.dev/bom/internal/bom"
)

// WriteSize64 serializes ctx's 64-bit size side table as a tree keyed by
// true size, valued by the metadata block index it belongs to, and
// returns the tree descriptor's block index.
func WriteSize64(w io.WriteSeeker, blocks *bom.Blocks, ctx *Context, blockLen uint32) (uint32, error) {
	entries := make([]bom.Entry, 0, len(ctx.FileSize64))
	for blockIndex, size := range ctx.FileSize64 {
		blockIndex, size := blockIndex, size
		keyIndex, err := bom.WriteValueBlock(w, blocks, func(w io.Writer) error {
			return bom.WriteU64(w, size)
		})
		if err != nil {
			return 0, err
		}
		valueIndex, err := bom.WriteValueBlock(w, blocks, func(w io.Writer) error {
			return bom.WriteU32(w, blockIndex)
		})
		if err != nil {
			return 0, err
		}
		entries = append(entries, bom.Entry{First: keyIndex, Second: valueIndex})
	}
	return bom.WriteTree(w, blocks, entries, blockLen)
}

// ReadSize64 reads the Size64 tree at descriptorIndex and populates ctx's
// FileSize64 map, keyed by metadata block index, so that later metadata
// reads can look up their true size.
func ReadSize64(descriptorIndex uint32, file []byte, blocks *bom.Blocks, ctx *Context) error {
	entries, err := bom.ReadTree(descriptorIndex, file, blocks)
	if err != nil {
		return err
	}
	for _, e := range entries {
		keyBytes, err := blocks.Slice(e.First, file)
		if err != nil {
			return err
		}
		size, err := bom.ReadU64(bytes.NewReader(keyBytes))
		if err != nil {
			return err
		}
		valueBytes, err := blocks.Slice(e.Second, file)
		if err != nil {
			return err
		}
		blockIndex, err := bom.ReadU32(bytes.NewReader(valueBytes))
		if err != nil {
			return err
		}
		ctx.FileSize64[blockIndex] = size
	}
	return nil
}
