// Program mkbom builds a BOM receipt describing the contents of a
// directory tree, the way Apple's installer tooling captures a package's
// file manifest before archiving it.
//
// Usage:
//
//	mkbom DIRECTORY OUTPUT [-s]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"stuckliste.dev/bom/internal/oninterrupt"
	"stuckliste.dev/bom/internal/receipt"
)

var pathsOnly = flag.Bool("s", false, "record paths only: every metadata record drops mode, ownership, timestamps, size and checksum")

// inode identifies a file for hard-link detection: two directory entries
// sharing both fields name the same underlying file.
type inode struct {
	dev uint64
	ino uint64
}

// walkEntry is one directory entry discovered by the tree walk, carrying
// just enough of its lstat result to build metadata and detect hard links
// without re-touching the filesystem in the second pass.
type walkEntry struct {
	path      string // path as visited by the walk (root joined with rel), for reading content or the symlink target
	rel       string // path relative to the walk root; "." for the root itself
	parentRel string
	name      string
	stat      unix.Stat_t
	isDir     bool
	isSymlink bool
}

func walk(root string) ([]walkEntry, error) {
	var entries []walkEntry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			return xerrors.Errorf("lstat %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.Base(rel)
		parentRel := filepath.Dir(rel)
		if rel == "." {
			name = "."
			parentRel = ""
		}
		entries = append(entries, walkEntry{
			path:      path,
			rel:       rel,
			parentRel: parentRel,
			name:      name,
			stat:      st,
			isDir:     d.IsDir(),
			isSymlink: d.Type()&os.ModeSymlink != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// primaryContent reads and classifies the content of every regular file
// that is the first directory entry found to name its inode, running one
// goroutine per file. Entries that reuse an already-seen inode (hard
// links) are left out: the single-threaded pass below resolves them
// against the primary's already-written metadata block instead.
func primaryContent(entries []walkEntry) (map[string]*receipt.Metadata, error) {
	metas := make([]*receipt.Metadata, len(entries))
	seen := make(map[inode]bool)
	var g errgroup.Group
	for i, e := range entries {
		if e.isDir || e.isSymlink || !isRegular(e.stat.Mode) {
			continue
		}
		key := inode{dev: uint64(e.stat.Dev), ino: e.stat.Ino}
		if seen[key] {
			continue
		}
		seen[key] = true
		i, e := i, e
		g.Go(func() error {
			content, err := os.ReadFile(e.path)
			if err != nil {
				return xerrors.Errorf("reading %s: %w", e.path, err)
			}
			metas[i] = receipt.BuildFileMetadata(
				uint16(e.stat.Mode&0o7777),
				e.stat.Uid,
				e.stat.Gid,
				uint32(e.stat.Mtim.Sec),
				content,
				uint64(e.stat.Size),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	byPath := make(map[string]*receipt.Metadata, len(entries))
	for i, m := range metas {
		if m != nil {
			byPath[entries[i].path] = m
		}
	}
	return byPath, nil
}

func isRegular(mode uint32) bool {
	return mode&unix.S_IFMT == unix.S_IFREG
}

func buildMetadata(e walkEntry, content map[string]*receipt.Metadata) (*receipt.Metadata, error) {
	if *pathsOnly {
		return receipt.PathsOnly(entryTypeOf(e.stat.Mode)), nil
	}
	mode := uint16(e.stat.Mode & 0o7777)
	uid, gid := e.stat.Uid, e.stat.Gid
	mtime := uint32(e.stat.Mtim.Sec)
	switch {
	case e.isDir:
		return receipt.BuildDirectoryMetadata(mode, uid, gid, mtime), nil
	case e.isSymlink:
		target, err := os.Readlink(e.path)
		if err != nil {
			return nil, xerrors.Errorf("readlink %s: %w", e.path, err)
		}
		return receipt.BuildLinkMetadata(mode, uid, gid, mtime, target), nil
	case isRegular(e.stat.Mode):
		m, ok := content[e.path]
		if !ok {
			return nil, xerrors.Errorf("mkbom: internal error: no precomputed metadata for %s", e.path)
		}
		return m, nil
	default:
		major, minor := unix.Major(e.stat.Rdev), unix.Minor(e.stat.Rdev)
		return receipt.BuildDeviceMetadata(mode, uid, gid, mtime, receipt.NewDeviceNumber(major, minor)), nil
	}
}

func entryTypeOf(mode uint32) receipt.EntryType {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return receipt.EntryDirectory
	case unix.S_IFLNK:
		return receipt.EntryLink
	case unix.S_IFREG:
		return receipt.EntryFile
	default:
		return receipt.EntryDevice
	}
}

func run(directory, output string) error {
	entries, err := walk(directory)
	if err != nil {
		return xerrors.Errorf("walking %s: %w", directory, err)
	}
	var content map[string]*receipt.Metadata
	if !*pathsOnly {
		content, err = primaryContent(entries)
		if err != nil {
			return xerrors.Errorf("reading file contents: %w", err)
		}
	}

	out, err := renameio.TempFile("", output)
	if err != nil {
		return xerrors.Errorf("creating temp file: %w", err)
	}
	defer out.Cleanup()
	oninterrupt.Register(func() { out.Cleanup() })

	builder := receipt.NewBuilder()
	if *pathsOnly {
		builder = builder.WithPathsOnly()
	}
	session, err := builder.NewSession(out)
	if err != nil {
		return xerrors.Errorf("starting receipt session: %w", err)
	}

	seqByRel := make(map[string]uint32, len(entries))
	blockByInode := make(map[inode]uint32, len(entries))
	info := receipt.NewBomInfo()
	for _, e := range entries {
		var parent uint32
		if e.rel != "." {
			parent = seqByRel[e.parentRel]
		}

		key := inode{dev: uint64(e.stat.Dev), ino: e.stat.Ino}
		if block, ok := blockByInode[key]; ok && !e.isDir {
			seq, err := session.AddHardLink(parent, e.name, block)
			if err != nil {
				return xerrors.Errorf("adding hard link %s: %w", e.path, err)
			}
			seqByRel[e.rel] = seq
			continue
		}

		m, err := buildMetadata(e, content)
		if err != nil {
			return err
		}
		for _, a := range m.Arches {
			info.AddArch(a.CPUType, a.Size)
		}
		seq, block, err := session.AddFile(parent, e.name, m)
		if err != nil {
			return xerrors.Errorf("adding %s: %w", e.path, err)
		}
		seqByRel[e.rel] = seq
		blockByInode[key] = block
	}

	if _, err := session.Finish(info); err != nil {
		return xerrors.Errorf("finishing receipt: %w", err)
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("replacing %s: %w", output, err)
	}
	return nil
}

func funcmain() error {
	flag.Parse()
	// Flags may also follow the positional arguments, as in the usage line.
	var args []string
	for rest := flag.Args(); len(rest) > 0; rest = flag.Args() {
		args = append(args, rest[0])
		if err := flag.CommandLine.Parse(rest[1:]); err != nil {
			return err
		}
	}
	if len(args) != 2 {
		return xerrors.New("syntax: mkbom DIRECTORY OUTPUT [-s]")
	}
	return run(args[0], args[1])
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
