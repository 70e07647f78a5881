package receipt

import (
	"io"

	"stuckliste.dev/bom/internal/bom"
)

// WriteVIndex writes the VIndex named block: a required but, per Apple's
// undocumented format, normally empty optional sub-tree of regex-matchable
// virtual paths. The core never populates it; it writes the absent
// sentinel every time.
func WriteVIndex(w io.WriteSeeker, blocks *bom.Blocks) (uint32, error) {
	return bom.WriteNullPointerBlock(w, blocks)
}

// ReadVIndex reports whether VIndex's optional sub-tree is present and,
// if so, its tree descriptor index. Contents are opaque to the core: no
// attempt is made to interpret them as regex-matchable paths.
func ReadVIndex(index uint32, file []byte, blocks *bom.Blocks) (descriptorIndex uint32, present bool, err error) {
	return bom.ReadPointerBlock(index, file, blocks)
}
