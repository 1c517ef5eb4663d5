// Diagnostic tool for inspecting fractal heaps inside a file.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-fracheap/fracheap"
)

var cmdMain = &cobra.Command{
	Use:   "fhdump",
	Short: "Inspect fractal heaps inside a binary file",
	Run:   printUsageAndExit1,
}

var cmdHeader = &cobra.Command{
	Use:   "header <file>",
	Short: "Parse and print the heap header at --addr",
	Args:  cobra.ExactArgs(1),
	Run:   runHeader,
}

var cmdGet = &cobra.Command{
	Use:   "get <file> <hex-id>",
	Short: "Resolve a heap id and write the object bytes to stdout",
	Args:  cobra.ExactArgs(2),
	Run:   runGet,
}

var flagMain struct {
	Addr       uint64
	OffsetSize int
	LengthSize int
	Verify     bool
	Debug      bool
}

var flagGet struct {
	Hex bool
}

var log zerolog.Logger

func init() {
	cmdMain.PersistentFlags().Uint64Var(&flagMain.Addr, "addr", 0, "File address of the heap header")
	cmdMain.PersistentFlags().IntVar(&flagMain.OffsetSize, "offset-size", 8, "File offset field width in bytes (2, 4, or 8)")
	cmdMain.PersistentFlags().IntVar(&flagMain.LengthSize, "length-size", 8, "File length field width in bytes (2, 4, or 8)")
	cmdMain.PersistentFlags().BoolVar(&flagMain.Verify, "verify", false, "Verify lookup3 checksums on the header and every block")
	cmdMain.PersistentFlags().BoolVar(&flagMain.Debug, "debug", false, "Enable debug logging")

	cmdGet.Flags().BoolVar(&flagGet.Hex, "hex", false, "Hex-dump the object instead of writing raw bytes")

	cmdMain.AddCommand(cmdHeader, cmdGet)
}

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	_ = cmdMain.Execute()
}

func printUsageAndExit1(cmd *cobra.Command, _ []string) {
	_ = cmd.Usage()
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func openHeap(path string) (*fracheap.Heap, func()) {
	if flagMain.Debug {
		log = log.Level(zerolog.DebugLevel)
	}

	f, err := os.Open(path)
	check(err)

	log.Debug().
		Str("file", path).
		Uint64("addr", flagMain.Addr).
		Int("offset_size", flagMain.OffsetSize).
		Int("length_size", flagMain.LengthSize).
		Msg("opening heap")

	opts := []fracheap.Option{
		fracheap.WithOffsetSize(flagMain.OffsetSize),
		fracheap.WithLengthSize(flagMain.LengthSize),
	}
	if flagMain.Verify {
		opts = append(opts, fracheap.WithChecksumVerification())
	}

	h, err := fracheap.Open(f, flagMain.Addr, opts...)
	if err != nil {
		f.Close()
		fatalf("opening heap at %d: %v", flagMain.Addr, err)
	}
	return h, func() { f.Close() }
}

func runHeader(_ *cobra.Command, args []string) {
	h, done := openHeap(args[0])
	defer done()

	info := h.Info()
	fmt.Printf("Heap header at %d:\n", flagMain.Addr)
	fmt.Printf("  Version:              %d\n", info.Version)
	fmt.Printf("  ID length:            %d bytes\n", info.IDLength)
	fmt.Printf("  Flags:                0x%02x\n", info.Flags)
	fmt.Printf("  Max managed size:     %d\n", info.MaxManagedSize)
	fmt.Printf("  Table width:          %d\n", info.TableWidth)
	fmt.Printf("  Start block size:     %d\n", info.StartBlockSize)
	fmt.Printf("  Max direct block:     %d\n", info.MaxDirectBlockSize)
	fmt.Printf("  Max heap bits:        %d\n", info.MaxHeapBits)
	fmt.Printf("  Root address:         %d\n", info.RootAddress)
	fmt.Printf("  Current root rows:    %d\n", info.CurrentRootRows)
	fmt.Printf("  Max direct rows:      %d\n", info.MaxDirectRows)
	fmt.Printf("  Managed objects:      %d (%d bytes)\n", info.ManagedObjects, info.ManagedSpace)
	fmt.Printf("  Huge objects:         %d\n", info.HugeObjects)
	fmt.Printf("  Tiny objects:         %d\n", info.TinyObjects)
	fmt.Printf("  Free space:           %d\n", info.FreeSpace)
	fmt.Printf("  Checksummed blocks:   %v\n", info.ChecksummedNodes)

	if filters := h.Filters(); filters != nil {
		fmt.Printf("  Filter pipeline:\n")
		for _, flt := range filters {
			fmt.Printf("    id=%d flags=0x%04x optional=%v name=%q client-data=%v\n",
				flt.ID, flt.Flags, flt.Optional, flt.Name, flt.ClientData)
		}
	} else {
		fmt.Printf("  Filter pipeline:      none\n")
	}
}

func runGet(_ *cobra.Command, args []string) {
	h, done := openHeap(args[0])
	defer done()

	id, err := hex.DecodeString(args[1])
	if err != nil {
		fatalf("heap id must be hex: %v", err)
	}

	if decoded, err := h.ID(id); err == nil {
		log.Debug().
			Str("kind", string(decoded.Kind)).
			Uint64("offset", decoded.Offset).
			Uint64("length", decoded.Length).
			Msg("decoded heap id")
	}

	data, err := h.Read(id)
	if err != nil {
		fatalf("resolving id %s: %v", args[1], err)
	}

	log.Debug().Int("bytes", len(data)).Msg("object resolved")

	if flagGet.Hex {
		fmt.Print(hex.Dump(data))
		return
	}
	_, err = os.Stdout.Write(data)
	check(err)
}
