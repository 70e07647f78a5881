package receipt

import (
	"io"

	"golang.org/x/exp/slices"

	"stuckliste.dev/bom/internal/bom"
)

// WriteHLIndex serializes ctx's hard-link map as a tree: each outer entry's
// key is a pointer to an inner subtree enumerating one inode's alternate
// names, and the value is the metadata block index of that inode's
// primary (first-seen) name. An inode with no recorded alternate names is
// not a hard link and is skipped. Metadata block indices are visited in
// sorted order for deterministic output.
func WriteHLIndex(w io.WriteSeeker, blocks *bom.Blocks, ctx *Context, blockLen uint32) (uint32, error) {
	metadataBlocks := make([]uint32, 0, len(ctx.HardLinks))
	for metadataBlock := range ctx.HardLinks {
		metadataBlocks = append(metadataBlocks, metadataBlock)
	}
	slices.Sort(metadataBlocks)

	entries := make([]bom.Entry, 0, len(ctx.HardLinks))
	for _, metadataBlock := range metadataBlocks {
		names := ctx.HardLinks[metadataBlock]
		if len(names) == 0 {
			continue
		}
		innerEntries := make([]bom.Entry, 0, len(names))
		for _, name := range names {
			nameBlock, err := bom.WriteCStringBlock(w, blocks, name)
			if err != nil {
				return 0, err
			}
			innerEntries = append(innerEntries, bom.Entry{First: nameBlock, Second: nameBlock})
		}
		innerDescriptor, err := bom.WriteTree(w, blocks, innerEntries, blockLen)
		if err != nil {
			return 0, err
		}
		keyIndex, err := bom.WritePointerBlock(w, blocks, innerDescriptor)
		if err != nil {
			return 0, err
		}
		valueIndex, err := bom.WriteU32Block(w, blocks, metadataBlock)
		if err != nil {
			return 0, err
		}
		entries = append(entries, bom.Entry{First: keyIndex, Second: valueIndex})
	}
	return bom.WriteTree(w, blocks, entries, blockLen)
}

// ReadHLIndex reads the HLIndex tree at descriptorIndex and populates
// ctx's HardLinks map, keyed by the primary metadata block index.
func ReadHLIndex(descriptorIndex uint32, file []byte, blocks *bom.Blocks, ctx *Context) error {
	entries, err := bom.ReadTree(descriptorIndex, file, blocks)
	if err != nil {
		return err
	}
	for _, e := range entries {
		innerDescriptor, present, err := bom.ReadPointerBlock(e.First, file, blocks)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		metadataBlock, err := bom.ReadU32Block(e.Second, file, blocks)
		if err != nil {
			return err
		}
		innerEntries, err := bom.ReadTree(innerDescriptor, file, blocks)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(innerEntries))
		for _, ie := range innerEntries {
			name, err := bom.ReadCStringBlock(ie.First, file, blocks)
			if err != nil {
				return err
			}
			names = append(names, name)
		}
		ctx.HardLinks[metadataBlock] = names
	}
	return nil
}
