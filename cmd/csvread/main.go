// Command csvread decodes delimited text from a file or stdin and writes the
// rows as JSON, NDJSON, YAML or msgpack.
//
// Usage:
//
//	csvread [flags] [file]
//
// Settings may also come from a YAML, JSON or TOML file given with -config;
// flags override the file.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shapestone/shape-csvreader/internal/config"
	"github.com/shapestone/shape-csvreader/internal/output"
	"github.com/shapestone/shape-csvreader/pkg/csv"
)

// sniffSize is how much input -delimiter auto looks at.
const sniffSize = 64 * 1024

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "csvread:", err)
		}
		os.Exit(1)
	}
}

// options are the command-line settings that are not part of config.File.
type options struct {
	configPath string
	rangeSpec  string
	input      string
	// set holds the names of the flags given on the command line.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (config.File, options, error) {
	var f config.File
	var o options

	fs := flag.NewFlagSet("csvread", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: csvread [flags] [file]")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.configPath, "config", "", "settings file (.yaml, .json or .toml)")
	fs.BoolVar(&f.Strict, "strict", false, "fail on trailing delimiters, ragged rows and unterminated quotes")
	fs.BoolVar(&f.Headers, "headers", false, "treat the first line as the header row")
	fs.Func("header-names", "comma-separated header names; the first line is data", func(s string) error {
		for _, name := range strings.Split(s, ",") {
			f.HeaderNames = append(f.HeaderNames, strings.TrimSpace(name))
		}
		return nil
	})
	fs.StringVar(&f.Quote, "quote", "", `quote character (default "\"")`)
	fs.StringVar(&f.Escape, "escape", "", "escape character (default: the quote)")
	fs.StringVar(&f.Delimiter, "delimiter", "", `field delimiter, e.g. ";" or "\t", or "auto" to detect it (default ",")`)
	fs.StringVar(&f.Newline, "newline", "", `line terminator (default "\n")`)
	fs.StringVar(&f.Comment, "comment", "", `comment character (default "#")`)
	fs.BoolVar(&f.NoComments, "no-comments", false, "disable comment recognition")
	fs.StringVar(&o.rangeSpec, "range", "", `logical lines to emit as start:end, end exclusive, e.g. "2:10"`)
	fs.StringVar(&f.MapHeaders, "map-headers", "", "header conversions, comma-separated: lower, upper, snake, trim")
	fs.IntVar(&f.ChunkSize, "chunk-size", 0, "read size in bytes")
	fs.StringVar(&f.Format, "format", "", fmt.Sprintf("output format: %s (default json)", strings.Join(output.Formats, ", ")))
	fs.StringVar(&f.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	fs.StringVar(&f.Log.Level, "log-level", "", "log level: debug, info, warn, error (default warn)")
	fs.StringVar(&f.Log.Format, "log-format", "", "log format: text or json (default text)")

	if err := fs.Parse(args); err != nil {
		return f, o, err
	}
	if fs.NArg() > 1 {
		return f, o, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}
	o.input = fs.Arg(0)
	o.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { o.set[fl.Name] = true })

	if o.rangeSpec != "" {
		r, err := csv.ParseRange(o.rangeSpec)
		if err != nil {
			return f, o, err
		}
		f.Range = r
	}
	return f, o, nil
}

// settings merges defaults, the config file and the flags, in that order.
func settings(flags config.File, o options) (config.File, error) {
	cfg := config.Defaults()
	if o.configPath != "" {
		fromFile, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		if cfg, err = config.Merge(cfg, fromFile); err != nil {
			return cfg, err
		}
	}
	merged, err := config.Merge(cfg, flags)
	if err != nil {
		return merged, err
	}

	// Merge never applies false; a given boolean flag still wins.
	if o.set["strict"] {
		merged.Strict = flags.Strict
	}
	if o.set["headers"] {
		merged.Headers = flags.Headers
	}
	if o.set["no-comments"] {
		merged.NoComments = flags.NoComments
	}
	return merged, nil
}

func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}

	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case "text":
		handler := log.NewWithOptions(w, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: true,
			Prefix:          "csvread",
		})
		return slog.New(handler), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags, o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := settings(flags, o)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	fromFile := o.input != "" && o.input != "-"
	in := bufio.NewReaderSize(stdin, sniffSize)

	if cfg.Delimiter == config.AutoDelimiter {
		var sample []byte
		if fromFile {
			sample, err = sniffFile(o.input)
		} else {
			sample, err = in.Peek(sniffSize)
			if errors.Is(err, io.EOF) || errors.Is(err, bufio.ErrBufferFull) {
				err = nil
			}
		}
		if err != nil {
			return err
		}
		cfg.Delimiter = csv.NewSniffer(string(sample)).DetectDelimiter()
		logger.Debug("detected delimiter", slog.String("delimiter", cfg.Delimiter))
	}

	opts, err := cfg.ReaderOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger

	var reg *prometheus.Registry
	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		if opts.Metrics, err = csv.NewMetrics(reg); err != nil {
			return err
		}
	}

	enc, err := output.New(cfg.Format, stdout)
	if err != nil {
		return err
	}
	opts.OnRow = enc.Encode

	reader, err := csv.NewReader(opts)
	if err != nil {
		return err
	}

	var readErr error
	if fromFile {
		readErr = decodeFile(ctx, reader, o.input)
	} else {
		readErr = decode(ctx, reader, in, reader.Options().ChunkSize)
	}
	if err := enc.Close(); err != nil && readErr == nil {
		readErr = err
	}
	if reg != nil {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil && readErr == nil {
			readErr = err
		}
	}
	return readErr
}

// sniffFile returns the start of the named file.
func sniffFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// decodeFile decodes the named file through a memory-mapped source.
func decodeFile(ctx context.Context, reader *csv.Reader, name string) error {
	src, err := csv.OpenFile(name, reader.Options().ChunkSize)
	if err != nil {
		return err
	}
	defer src.Stop()

	_, err = reader.Read(ctx, src)
	return err
}

// decode reads in in a producer goroutine and decodes in the caller's.
//
// The producer is not waited for: once the range end stops the read it may
// still be blocked reading an interactive stdin, and it exits with the
// process.
func decode(ctx context.Context, reader *csv.Reader, in io.Reader, chunkSize int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src := csv.NewPushSource(4)
	go produce(ctx, src, in, chunkSize)

	_, err := reader.Read(ctx, src)
	return err
}

// produce pushes chunks of in to src until the input ends, the read stops or
// ctx is canceled. Read errors are handed to the decoder through src.
func produce(ctx context.Context, src *csv.PushSource, in io.Reader, chunkSize int) {
	for ctx.Err() == nil {
		chunk := make([]byte, chunkSize)
		n, err := in.Read(chunk)
		if n > 0 {
			if perr := src.Push(ctx, chunk[:n]); perr != nil {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			src.Close()
			return
		}
		if err != nil {
			src.CloseWithError(err)
			return
		}
	}
}
