// Program lsbom lists the entries recorded in one or more BOM receipts,
// the way Apple's installer tooling inspects a package's file manifest.
//
// Usage:
//
//	lsbom FILE... [-b|-c|-d|-f|-l] [-m] [-s] [-x] [--arch ARCH]
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"

	"stuckliste.dev/bom/internal/receipt"
)

var (
	showBlockDevices = flag.Bool("b", false, "list block device entries")
	showCharDevices  = flag.Bool("c", false, "list character device entries")
	showDirectories  = flag.Bool("d", false, "list directory entries")
	showFiles        = flag.Bool("f", false, "list regular file entries")
	showLinks        = flag.Bool("l", false, "list symbolic link entries")
	showMtime        = flag.Bool("m", false, "include modification time")
	pathsOnly        = flag.Bool("s", false, "print pathnames only, suppressing every other column")
	noMode           = flag.Bool("x", false, "suppress the mode column for directories and symbolic links")
	archName         = flag.String("arch", "", "print size and checksum for one Mach-O architecture instead of the whole-file checksum")
	formatString     = flag.String("p", "", "not supported")
)

func selectedTypes() map[receipt.EntryType]bool {
	selected := map[receipt.EntryType]bool{}
	if *showBlockDevices {
		selected[receipt.EntryDevice] = true
	}
	if *showCharDevices {
		selected[receipt.EntryDevice] = true
	}
	if *showDirectories {
		selected[receipt.EntryDirectory] = true
	}
	if *showFiles {
		selected[receipt.EntryFile] = true
	}
	if *showLinks {
		selected[receipt.EntryLink] = true
	}
	if len(selected) == 0 {
		// No type flag given: list everything, matching the original
		// tool's default when no -b/-c/-d/-f/-l is passed.
		selected[receipt.EntryFile] = true
		selected[receipt.EntryDirectory] = true
		selected[receipt.EntryLink] = true
		selected[receipt.EntryDevice] = true
	}
	return selected
}

func archChecksum(m *receipt.Metadata, cpuType uint32) (size, checksum uint32, ok bool) {
	for _, a := range m.Arches {
		if a.CPUType == cpuType {
			return a.Size, a.Checksum, true
		}
	}
	return 0, 0, false
}

func listFile(emit func(fields ...string), path string, cpuType uint32, haveArch bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Errorf("reading %s: %w", path, err)
	}
	reader, err := receipt.Read(data, receipt.NewContext())
	if err != nil {
		return xerrors.Errorf("parsing %s: %w", path, err)
	}

	types := selectedTypes()
	for _, c := range reader.Receipt.Paths.Components {
		m, err := reader.Metadata(c.SeqNo)
		if err != nil {
			return xerrors.Errorf("reading metadata for seq_no %d: %w", c.SeqNo, err)
		}
		if !types[m.EntryType] {
			continue
		}

		fullPath, err := reader.Receipt.Paths.Path(c.SeqNo)
		if err != nil {
			return xerrors.Errorf("reconstructing path for seq_no %d: %w", c.SeqNo, err)
		}

		if *pathsOnly || m.PathOnly {
			emit(fullPath)
			continue
		}

		fields := []string{fullPath}
		if !*noMode || (m.EntryType != receipt.EntryDirectory && m.EntryType != receipt.EntryLink) {
			fields = append(fields, fmt.Sprintf("%04o", m.Mode))
		}
		fields = append(fields, fmt.Sprintf("%d/%d", m.UID, m.GID))

		switch {
		case haveArch && m.EntryType == receipt.EntryFile:
			if size, checksum, ok := archChecksum(m, cpuType); ok {
				fields = append(fields, fmt.Sprintf("%d", size), fmt.Sprintf("%08x", checksum))
			}
		case m.EntryType == receipt.EntryFile || m.EntryType == receipt.EntryLink:
			fields = append(fields, fmt.Sprintf("%d", m.Size), fmt.Sprintf("%08x", m.Checksum))
		}

		if *showMtime {
			fields = append(fields, fmt.Sprintf("%d", m.Mtime))
		}

		emit(fields...)
	}
	return nil
}

// newEmitter returns a line emitter matching the terminal: tab-aligned
// columns (flushed by the returned func) for an interactive terminal, or a
// plain single-space-joined stream for a pipe.
func newEmitter(out *os.File) (emit func(fields ...string), flush func() error) {
	if isatty.IsTerminal(out.Fd()) {
		w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		return func(fields ...string) {
			fmt.Fprintln(w, fieldsJoin(fields, "\t"))
		}, w.Flush
	}
	return func(fields ...string) {
		fmt.Fprintln(out, fieldsJoin(fields, " "))
	}, func() error { return nil }
}

func fieldsJoin(fields []string, sep string) string {
	s := fields[0]
	for _, f := range fields[1:] {
		s += sep + f
	}
	return s
}

func run(paths []string) error {
	if *formatString != "" {
		return receipt.ErrUnsupportedFormat
	}
	var cpuType uint32
	var haveArch bool
	if *archName != "" {
		var ok bool
		cpuType, ok = receipt.CPUTypeForArch(*archName)
		if !ok {
			return xerrors.Errorf("unknown architecture %q", *archName)
		}
		haveArch = true
	}

	emit, flush := newEmitter(os.Stdout)
	for _, path := range paths {
		if err := listFile(emit, path, cpuType, haveArch); err != nil {
			return err
		}
	}
	return flush()
}

func funcmain() error {
	flag.Parse()
	// Flags may also follow the FILE arguments, as in the usage line.
	var args []string
	for rest := flag.Args(); len(rest) > 0; rest = flag.Args() {
		args = append(args, rest[0])
		if err := flag.CommandLine.Parse(rest[1:]); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		return xerrors.New("syntax: lsbom FILE... [-b|-c|-d|-f|-l] [-m] [-s] [-x] [--arch ARCH]")
	}
	return run(args)
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
