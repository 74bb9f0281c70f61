package csv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/shapestone/shape-csvreader/internal/parser"
)

// Reader decodes delimited text. Options are resolved once; every read gets
// its own scanner state, so a Reader may be used by several goroutines.
//
// Example:
//
//	r, err := csv.NewReader(csv.ReaderOptions{Headers: true, Strict: true})
//	if err != nil {
//	    // invalid options
//	}
//	result, err := r.ReadString(ctx, "name,age\nAlice,30\n")
type Reader struct {
	opts   ReaderOptions
	cfg    parser.Config
	logger *slog.Logger
}

// Result holds the outcome of a bulk read.
type Result struct {
	// Headers is the header set, nil outside header mode.
	Headers []string
	// Rows holds every emitted row unless an OnRow callback consumed them.
	Rows []Row
}

// NewReader resolves opts over DefaultReaderOptions and validates them.
// It returns an *OptionsError for invalid settings.
func NewReader(opts ReaderOptions) (*Reader, error) {
	resolved, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	logger := resolved.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reader{
		opts:   resolved,
		cfg:    resolved.config(),
		logger: logger,
	}, nil
}

// Options returns the resolved options.
func (r *Reader) Options() ReaderOptions {
	return r.opts
}

// Read decodes everything src delivers.
func (r *Reader) Read(ctx context.Context, src Source) (*Result, error) {
	d := r.start(ctx, src, r.opts.OnRow == nil)

	var err error
	for done := false; !done; {
		done, err = d.step(ctx)
	}
	if err = d.finish(ctx, err); err != nil {
		return nil, err
	}
	return d.sink.result(), nil
}

// ReadFrom decodes rd in chunks of ReaderOptions.ChunkSize. If the read stops
// early and rd is an io.Closer, rd is closed.
func (r *Reader) ReadFrom(ctx context.Context, rd io.Reader) (*Result, error) {
	return r.Read(ctx, NewReaderSource(rd, r.opts.ChunkSize))
}

// ReadString decodes s after trimming surrounding whitespace and appending the
// configured newline.
func (r *Reader) ReadString(ctx context.Context, s string) (*Result, error) {
	return r.ReadBytes(ctx, []byte(strings.TrimSpace(s)+r.opts.Newline))
}

// ReadBytes decodes b as it is.
func (r *Reader) ReadBytes(ctx context.Context, b []byte) (*Result, error) {
	return r.Read(ctx, NewBytesSource(b))
}

// sink collects session output and forwards it to the callbacks.
type sink struct {
	onHeaders func([]string)
	onRow     func(Row) error
	buffer    bool

	headers []string
	rows    []Row
}

func (s *sink) Headers(names []string) {
	s.headers = names
	if s.onHeaders != nil {
		s.onHeaders(slices.Clone(names))
	}
}

func (s *sink) Row(fields, headers []string, line parser.Line) error {
	row := Row{fields: fields, headers: headers, line: line.Logical}
	if s.buffer {
		s.rows = append(s.rows, row)
	}
	if s.onRow != nil {
		if err := s.onRow(row); err != nil {
			return fmt.Errorf("csv: on row: %w", err)
		}
	}
	return nil
}

// take removes and returns the buffered rows.
func (s *sink) take() []Row {
	rows := s.rows
	s.rows = nil
	return rows
}

func (s *sink) result() *Result {
	return &Result{Headers: s.headers, Rows: s.rows}
}

// decode is one read in progress.
type decode struct {
	r       *Reader
	src     Source
	session *parser.Session
	sink    *sink
	id      string
	done    bool
}

func (r *Reader) start(ctx context.Context, src Source, buffer bool) *decode {
	d := &decode{
		r:   r,
		src: src,
		sink: &sink{
			onHeaders: r.opts.OnHeaders,
			onRow:     r.opts.OnRow,
			buffer:    buffer,
		},
		id: uuid.NewString(),
	}
	d.session = parser.NewSession(r.cfg, d.sink)

	r.logger.DebugContext(ctx, "csv read started",
		slog.String("session", d.id),
		slog.Bool("strict", r.opts.Strict),
		slog.Bool("headers", r.opts.headerMode()),
		slog.String("range", r.opts.Range.String()),
	)
	d.session.Begin()
	return d
}

// step feeds one chunk. It reports true once the read is complete or failed.
func (d *decode) step(ctx context.Context) (bool, error) {
	s := d.session
	if s.Done() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return true, err
	}

	chunk, err := d.src.Next(ctx)
	if len(chunk) > 0 {
		if ferr := s.Feed(chunk); ferr != nil {
			return true, ferr
		}
	}
	switch {
	case errors.Is(err, io.EOF):
		return true, s.Finish()
	case err != nil:
		if s.Stopped() {
			return true, nil
		}
		return true, fmt.Errorf("csv: read source: %w", err)
	}
	return s.Done(), nil
}

// finish releases the session and reports the outcome. It is idempotent.
func (d *decode) finish(ctx context.Context, err error) error {
	if d.done {
		return err
	}
	d.done = true

	s := d.session
	stats := s.Stats()
	if stats.Stopped || err != nil {
		d.src.Stop()
	}
	s.Release()

	result := resultOK
	switch {
	case err != nil:
		result = resultError
	case stats.Stopped:
		result = resultStopped
	}
	d.r.opts.Metrics.observe(stats, result)

	log := d.r.logger.With(slog.String("session", d.id))
	if stats.Stopped {
		log.DebugContext(ctx, "csv range end reached, source stopped",
			slog.Int("logical_line", stats.Logical))
	}
	if err != nil {
		log.DebugContext(ctx, "csv read failed", slog.Any("error", err))
		return err
	}
	log.DebugContext(ctx, "csv read finished",
		slog.Int64("bytes", stats.Bytes),
		slog.Int("physical_lines", stats.Physical),
		slog.Int("logical_lines", stats.Logical),
		slog.Int("rows", stats.Rows),
	)
	return nil
}
