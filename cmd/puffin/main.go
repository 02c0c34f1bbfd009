package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/delta"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/logger"
	"github.com/n-peugnet/puffin/patch"
	"github.com/n-peugnet/puffin/perror"
	"github.com/n-peugnet/puffin/puff"
)

type command struct {
	Flag  *flag.FlagSet
	Run   func([]string) error
	Usage string
	Help  string
}

const (
	name      = "puffin"
	baseUsage = "<command> [<options>] [--] <args>"
)

var (
	logLevel    int
	srcFile     string
	dstFile     string
	patchFile   string
	srcDeflates string
	dstDeflates string
	deltaEngine string
)

var puffCmd = command{flag.NewFlagSet("puff", flag.ExitOnError), puffMain,
	"[<options>]",
	"Convert a deflate byte stream into its puff representation",
}
var huffCmd = command{flag.NewFlagSet("huff", flag.ExitOnError), huffMain,
	"[<options>]",
	"Convert a puff representation back into a deflate byte stream",
}
var puffDiffCmd = command{flag.NewFlagSet("puffdiff", flag.ExitOnError), puffDiffMain,
	"[<options>]",
	"Produce a patch from --src_file to --dst_file via their puff representations",
}
var puffPatchCmd = command{flag.NewFlagSet("puffpatch", flag.ExitOnError), puffPatchMain,
	"[<options>]",
	"Apply a patch produced by puffdiff to --src_file, writing --dst_file",
}

var subcommands = map[string]command{
	puffCmd.Flag.Name():      puffCmd,
	huffCmd.Flag.Name():      huffCmd,
	puffDiffCmd.Flag.Name():  puffDiffCmd,
	puffPatchCmd.Flag.Name(): puffPatchCmd,
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s %s\n\ncommands:\n", name, baseUsage)
		for _, s := range subcommands {
			fmt.Printf("  %s	%s\n", s.Flag.Name(), s.Help)
		}
		os.Exit(1)
	}
	for _, s := range subcommands {
		s.Flag.IntVar(&logLevel, "v", 3, "log verbosity level (0-4)")
		s.Flag.StringVar(&srcFile, "src_file", "", "path to the source file")
		s.Flag.StringVar(&dstFile, "dst_file", "", "path to the destination file")
		s.Flag.StringVar(&patchFile, "patch_file", "", "path to the patch file")
	}
	puffDiffCmd.Flag.StringVar(&srcDeflates, "src_deflates", "", "comma-separated bit_offset:bit_length deflate locations in --src_file")
	puffDiffCmd.Flag.StringVar(&dstDeflates, "dst_deflates", "", "comma-separated bit_offset:bit_length deflate locations in --dst_file")
	puffDiffCmd.Flag.StringVar(&deltaEngine, "delta", "bsdiff", "binary differ to use: bsdiff or fdelta")
	puffPatchCmd.Flag.StringVar(&deltaEngine, "delta", "bsdiff", "binary differ to use: bsdiff or fdelta")
}

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
	}
	cmd, exists := subcommands[args[0]]
	if !exists {
		fmt.Fprintf(flag.CommandLine.Output(), "error: unknown command %s\n\n", args[0])
		flag.Usage()
	}
	cmd.Flag.Usage = func() {
		fmt.Fprintf(cmd.Flag.Output(), "usage: %s %s %s\n\noptions:\n", name, cmd.Flag.Name(), cmd.Usage)
		cmd.Flag.PrintDefaults()
		os.Exit(1)
	}
	cmd.Flag.Parse(args[1:])
	logger.Init(logLevel)
	if err := cmd.Run(cmd.Flag.Args()); err != nil {
		kind := "error"
		if pe, ok := err.(*perror.Error); ok {
			kind = pe.Kind.String()
		}
		logger.Error("%s: %s", kind, err)
		os.Exit(1)
	}
}

func parseExtents(spec string) ([]extent.BitExtent, error) {
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	out := make([]extent.BitExtent, 0, len(parts))
	for _, p := range parts {
		fields := strings.SplitN(p, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed extent %q, want offset:length", p)
		}
		offset, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed extent offset %q: %w", fields[0], err)
		}
		length, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed extent length %q: %w", fields[1], err)
		}
		out = append(out, extent.BitExtent{Offset: offset, Length: length})
	}
	return out, nil
}

func codecByName(name string) (delta.Codec, error) {
	switch name {
	case "bsdiff":
		return delta.Bsdiff{}, nil
	case "fdelta":
		return delta.Fdelta{}, nil
	default:
		return nil, fmt.Errorf("unknown delta engine %q", name)
	}
}

func openSrc() (*os.File, error) {
	if srcFile == "" {
		return nil, fmt.Errorf("--src_file is required")
	}
	return os.Open(srcFile)
}

func createDst() (*os.File, error) {
	if dstFile == "" {
		return nil, fmt.Errorf("--dst_file is required")
	}
	return os.Create(dstFile)
}

func puffMain(args []string) error {
	src, err := openSrc()
	if err != nil {
		return err
	}
	defer src.Close()
	deflate, err := readAll(src)
	if err != nil {
		return err
	}
	puffed, err := puff.PuffBuffer(deflate)
	if err != nil {
		return err
	}
	dst, err := createDst()
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = dst.Write(puffed)
	return err
}

func huffMain(args []string) error {
	src, err := openSrc()
	if err != nil {
		return err
	}
	defer src.Close()
	puffed, err := readAll(src)
	if err != nil {
		return err
	}
	deflate, err := puff.HuffBuffer(puffed)
	if err != nil {
		return err
	}
	dst, err := createDst()
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = dst.Write(deflate)
	return err
}

func puffDiffMain(args []string) error {
	srcDeflateExtents, err := parseExtents(srcDeflates)
	if err != nil {
		return err
	}
	dstDeflateExtents, err := parseExtents(dstDeflates)
	if err != nil {
		return err
	}
	codec, err := codecByName(deltaEngine)
	if err != nil {
		return err
	}
	if patchFile == "" {
		return fmt.Errorf("--patch_file is required")
	}

	srcOS, err := openSrc()
	if err != nil {
		return err
	}
	defer srcOS.Close()
	dstOS, err := os.Open(dstFile)
	if err != nil {
		return err
	}
	defer dstOS.Close()

	driver := patch.NewDriver(codec)
	patchBytes, err := driver.PuffDiff(
		bytestream.OpenFile(srcOS),
		bytestream.OpenFile(dstOS),
		srcDeflateExtents,
		dstDeflateExtents,
	)
	if err != nil {
		return err
	}

	patchOS, err := os.Create(patchFile)
	if err != nil {
		return err
	}
	defer patchOS.Close()
	_, err = patchOS.Write(patchBytes)
	return err
}

func puffPatchMain(args []string) error {
	codec, err := codecByName(deltaEngine)
	if err != nil {
		return err
	}
	if patchFile == "" {
		return fmt.Errorf("--patch_file is required")
	}

	srcOS, err := openSrc()
	if err != nil {
		return err
	}
	defer srcOS.Close()
	patchOS, err := os.Open(patchFile)
	if err != nil {
		return err
	}
	defer patchOS.Close()
	patchBytes, err := readAll(patchOS)
	if err != nil {
		return err
	}
	dstOS, err := createDst()
	if err != nil {
		return err
	}
	defer dstOS.Close()

	driver := patch.NewDriver(codec)
	return driver.PuffPatch(bytestream.OpenFile(srcOS), bytestream.OpenFile(dstOS), patchBytes)
}

func readAll(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
