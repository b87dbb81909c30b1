package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

func main() {
	var (
		domainName string
		format     string
		rows       int
		outPath    string
		toStdout   bool
		compress   string
		seed       int64
	)

	flag.StringVar(&domainName, "domain", "lb", "Dataset to generate: "+strings.Join(domainNames(), ","))
	flag.StringVar(&format, "format", "ndjson", "Output format: json or ndjson")
	flag.IntVar(&rows, "rows", 10000, "Number of rows")
	flag.StringVar(&outPath, "out", "", "Output file path. Defaults to simulateddata/<domain>.<format>[.<compress>]")
	flag.BoolVar(&toStdout, "stdout", false, "Write to stdout instead of a file")
	flag.StringVar(&compress, "compress", "", "Optional compression: gz, zst or xz")
	flag.Int64Var(&seed, "seed", 0, "Random seed. 0 picks one from the clock")
	flag.Parse()

	d, ok := domains[strings.ToLower(domainName)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown domain: %s\n", domainName)
		os.Exit(2)
	}
	format = normalizeFormat(format)
	if format == "" {
		fmt.Fprintln(os.Stderr, "format must be json or ndjson")
		os.Exit(2)
	}
	if rows < 0 {
		fmt.Fprintln(os.Stderr, "rows must not be negative")
		os.Exit(2)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Setup interrupt handling
	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		interrupted.Store(true)
	}()
	shouldStop := interrupted.Load

	if toStdout {
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		if err := newGenerator(d, seed).write(w, format, rows, shouldStop); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if outPath == "" {
		if err := os.MkdirAll("simulateddata", 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create simulateddata: %v\n", err)
			os.Exit(1)
		}
		outPath = filepath.Join("simulateddata", d.name+"."+format)
		if compress != "" {
			outPath += "." + compress
		}
	}
	start := time.Now()
	if err := writeFile(outPath, compress, func(w io.Writer) error {
		return newGenerator(d, seed).write(w, format, rows, shouldStop)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	// If interrupted, remove the partial file
	if interrupted.Load() {
		_ = os.Remove(outPath)
		os.Exit(130)
	}
	fmt.Fprintf(os.Stderr, "generated %d %s rows -> %s in %s (seed %d)\n", rows, d.name, outPath, time.Since(start).Round(time.Millisecond), seed)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "json":
		return "json"
	case "ndjson", "jsonl", "json_lines":
		return "ndjson"
	default:
		return ""
	}
}

// writeFile runs fn against path, compressed with the named codec.
func writeFile(path, codec string, fn func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	var (
		w     io.Writer = bw
		closeFn = func() error { return nil }
	)
	switch codec {
	case "":
	case "gz", "gzip":
		zw := gzip.NewWriter(bw)
		w, closeFn = zw, zw.Close
	case "zst", "zstd":
		zw, err := zstd.NewWriter(bw)
		if err != nil {
			f.Close()
			return err
		}
		w, closeFn = zw, zw.Close
	case "xz":
		zw, err := xz.NewWriter(bw)
		if err != nil {
			f.Close()
			return err
		}
		w, closeFn = zw, zw.Close
	default:
		f.Close()
		return fmt.Errorf("unknown compression %q (want gz, zst or xz)", codec)
	}
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := closeFn(); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
