package csv_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapestone/shape-csvreader/pkg/csv"
)

func newReader(t *testing.T, opts csv.ReaderOptions) *csv.Reader {
	t.Helper()
	r, err := csv.NewReader(opts)
	require.NoError(t, err)
	return r
}

func fields(rows []csv.Row) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = row.Fields()
	}
	return out
}

func maps(rows []csv.Row) []map[string]string {
	out := make([]map[string]string, len(rows))
	for i, row := range rows {
		out[i] = row.Map()
	}
	return out
}

const sample = `1,A,123,"B","Fo,o"
2,B,321,"C","Foo""bar"
3,C,213,"D","Foo
bar"
`

func TestReadString_Basic(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{})

	result, err := r.ReadString(context.Background(), sample)
	require.NoError(t, err)
	assert.Nil(t, result.Headers)
	assert.Equal(t, [][]string{
		{"1", "A", "123", "B", "Fo,o"},
		{"2", "B", "321", "C", "Foo\"bar"},
		{"3", "C", "213", "D", "Foo\nbar"},
	}, fields(result.Rows))
	assert.Equal(t, 3, result.Rows[2].Line())
}

func TestReadString_Headers(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Headers: true})

	result, err := r.ReadString(context.Background(), "ID,Name\n1,John\n2,Jane\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name"}, result.Headers)
	assert.Equal(t, []map[string]string{
		{"ID": "1", "Name": "John"},
		{"ID": "2", "Name": "Jane"},
	}, maps(result.Rows))

	name, ok := result.Rows[1].GetByName("Name")
	assert.True(t, ok)
	assert.Equal(t, "Jane", name)
}

func TestReadString_MapHeaders(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{
		Headers:    true,
		MapHeaders: csv.MapHeadersWith(csv.TrimHeader, csv.SnakeCaseHeader),
	})

	result, err := r.ReadString(context.Background(), "First Name, LastName\nJohn,Doe\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "last_name"}, result.Headers)
	assert.Equal(t, map[string]string{"first_name": "John", "last_name": "Doe"}, result.Rows[0].Map())
}

func TestReadString_HeaderNames(t *testing.T) {
	var announced [][]string
	r := newReader(t, csv.ReaderOptions{
		HeaderNames: []string{"id", "name"},
		MapHeaders:  func(h []string) []string { return []string{"ignored"} },
		OnHeaders:   func(h []string) { announced = append(announced, h) },
	})

	result, err := r.ReadString(context.Background(), "1,John\n2,Jane\n")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "name"}}, announced)
	assert.Equal(t, []string{"id", "name"}, result.Headers)
	assert.Equal(t, []map[string]string{
		{"id": "1", "name": "John"},
		{"id": "2", "name": "Jane"},
	}, maps(result.Rows))
}

func TestReadString_ShortRowsWithHeaders(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Headers: true})

	result, err := r.ReadString(context.Background(), "a,b,c\n1,2\n1,2,3,4\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, result.Rows[0].Map())
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, result.Rows[1].Map())
	assert.Equal(t, 4, result.Rows[1].Len())

	_, ok := result.Rows[0].GetByName("c")
	assert.False(t, ok)
}

func TestReadString_Callbacks(t *testing.T) {
	var events []string
	r := newReader(t, csv.ReaderOptions{
		Headers:   true,
		OnHeaders: func(h []string) { events = append(events, "headers:"+strings.Join(h, "|")) },
		OnRow: func(row csv.Row) error {
			events = append(events, "row:"+strings.Join(row.Fields(), "|"))
			return nil
		},
	})

	result, err := r.ReadString(context.Background(), "ID,Name\n1,John\n2,Jane\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"headers:ID|Name", "row:1|John", "row:2|Jane"}, events)
	assert.Equal(t, []string{"ID", "Name"}, result.Headers)
	assert.Empty(t, result.Rows)
}

func TestReadString_OnRowError(t *testing.T) {
	errStop := errors.New("stop")
	seen := 0
	r := newReader(t, csv.ReaderOptions{
		OnRow: func(row csv.Row) error {
			seen++
			if row.Line() == 2 {
				return errStop
			}
			return nil
		},
	})

	result, err := r.ReadString(context.Background(), "a\nb\nc\n")
	assert.ErrorIs(t, err, errStop)
	assert.EqualError(t, err, "csv: on row: stop")
	assert.Nil(t, result)
	assert.Equal(t, 2, seen)
}

func TestReadString_Strict(t *testing.T) {
	tests := []struct {
		name    string
		opts    csv.ReaderOptions
		input   string
		wantErr error
		message string
	}{
		{
			name:    "trailing delimiter",
			opts:    csv.ReaderOptions{Strict: true},
			input:   "1,A,123,\"B\",\"Fo,o\",\n2,B,321,\"C\",\"Foo\"\"bar\",\n",
			wantErr: csv.ErrTrailingDelimiter,
			message: "Trailing delimiter found at the end of line 1",
		},
		{
			name:    "trailing delimiter with pipe",
			opts:    csv.ReaderOptions{Strict: true, Delimiter: "|"},
			input:   "1|A|123|\"B\"|\n",
			wantErr: csv.ErrTrailingDelimiter,
			message: "Trailing delimiter found at the end of line 1",
		},
		{
			name:    "column count",
			opts:    csv.ReaderOptions{Strict: true},
			input:   "A,B,C\n1,2,3\n4,5\n",
			wantErr: csv.ErrFieldCount,
			message: "Line 3 has 2 columns but 3 were expected",
		},
		{
			name:    "column count with headers",
			opts:    csv.ReaderOptions{Strict: true, Headers: true},
			input:   "A,B,C,D,E\n1,A,123,\"B\",\"\"\n2,B,321,\"C\",Foobar,FOO\n",
			wantErr: csv.ErrFieldCount,
			message: "Line 3 has 6 columns but 5 were expected",
		},
		{
			name:    "unterminated quote",
			opts:    csv.ReaderOptions{Strict: true},
			input:   "a,\"b\n",
			wantErr: csv.ErrUnterminatedQuote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReader(t, tt.opts)

			result, err := r.ReadString(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.message != "" {
				assert.EqualError(t, err, tt.message)
			}

			var perr *csv.ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestReadString_NonStrictIsLenient(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{})

	result, err := r.ReadString(context.Background(),
		"4,\"foo\nbar\",654,E,Foo,\n\"5\"\"\",A,321,\"F\",Foobar,\n6\n")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"4", "foo\nbar", "654", "E", "Foo"},
		{"5\"", "A", "321", "F", "Foobar"},
		{"6"},
	}, fields(result.Rows))
}

func TestReadString_Dialects(t *testing.T) {
	tests := []struct {
		name  string
		opts  csv.ReaderOptions
		input string
		want  [][]string
	}{
		{
			name:  "custom quote",
			opts:  csv.ReaderOptions{Quote: "~"},
			input: "1,A,123,~B~,~Fo,o~\n2,B,321,~\"~,~Foo~~bar~\n",
			want: [][]string{
				{"1", "A", "123", "B", "Fo,o"},
				{"2", "B", "321", "\"", "Foo~bar"},
			},
		},
		{
			name:  "custom escape",
			opts:  csv.ReaderOptions{Escape: "~"},
			input: "1,A,123,\"~\"B~\"\",\"Fo,o\"\n",
			want:  [][]string{{"1", "A", "123", "\"B\"", "Fo,o"}},
		},
		{
			name:  "custom delimiter",
			opts:  csv.ReaderOptions{Delimiter: ";"},
			input: "1;A;\"Fo;o\";Fo,o\n",
			want:  [][]string{{"1", "A", "Fo;o", "Fo,o"}},
		},
		{
			name:  "tab delimiter",
			opts:  csv.ReaderOptions{Delimiter: "\t"},
			input: "a\tb\n1\t\"x\ty\"\n",
			want:  [][]string{{"a", "b"}, {"1", "x\ty"}},
		},
		{
			name:  "custom comment",
			opts:  csv.ReaderOptions{Comment: "%"},
			input: "% header comment\n1,#A % trailing\n",
			want:  [][]string{{"1", "#A "}},
		},
		{
			name:  "comments disabled",
			opts:  csv.ReaderOptions{DisableComments: true},
			input: "#1,A\n",
			want:  [][]string{{"#1", "A"}},
		},
		{
			name:  "CR in quoted field",
			input: "5,A,\"F\r\",Foobar\r\n",
			want:  [][]string{{"5", "A", "F\r", "Foobar"}},
		},
		{
			name:  "comment lines",
			input: "# Comment\n1,A,123,\"B\",\"Foo\" # comment\n# Another comment\n",
			want:  [][]string{{"1", "A", "123", "B", "Foo"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReader(t, tt.opts)

			result, err := r.ReadString(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fields(result.Rows))
		})
	}
}

func TestReadBytes_CustomNewline(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Newline: ";"})

	result, err := r.ReadBytes(context.Background(), []byte("1,A;2,\"B;C\";3,C\r;"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "A"}, {"2", "B;C"}, {"3", "C"}}, fields(result.Rows))
}

func TestReadString_CustomNewline(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Newline: "|"})

	result, err := r.ReadString(context.Background(), "a,b|c,d")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, fields(result.Rows))

	result, err = r.ReadString(context.Background(), " x|\"y|z\" ")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"y|z"}}, fields(result.Rows))
}

func TestRead_Range(t *testing.T) {
	input := "1,A\n2,B\n3,C\n4,D\n5,E\n"

	t.Run("start and end", func(t *testing.T) {
		r := newReader(t, csv.ReaderOptions{Range: csv.NewRange(2, 4)})

		result, err := r.ReadString(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"2", "B"}, {"3", "C"}}, fields(result.Rows))
		assert.Equal(t, []int{2, 3}, []int{result.Rows[0].Line(), result.Rows[1].Line()})
	})

	t.Run("with headers", func(t *testing.T) {
		r := newReader(t, csv.ReaderOptions{Headers: true, Range: csv.NewRange(1, 4)})

		result, err := r.ReadString(context.Background(), "ID,Name\n1,John\n2,Jane\n3,Matt\n4,Ann\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"ID", "Name"}, result.Headers)
		assert.Equal(t, [][]string{{"1", "John"}, {"2", "Jane"}}, fields(result.Rows))
	})

	t.Run("empty range never reads", func(t *testing.T) {
		src := &countingSource{chunks: []string{input}}
		r := newReader(t, csv.ReaderOptions{Range: csv.NewRange(3, 3)})

		result, err := r.Read(context.Background(), src)
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Zero(t, src.calls)
		assert.True(t, src.stopped)
	})
}

func TestReadFrom_StopsAndClosesSource(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("ID,Name\n1,John\n2,Jane\n3,Matt\n")}
	r := newReader(t, csv.ReaderOptions{Headers: true, Range: csv.NewRange(1, 3), ChunkSize: 4})

	result, err := r.ReadFrom(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "John"}}, fields(result.Rows))
	assert.True(t, rc.closed)
}

func TestReadFrom_ChunkSizes(t *testing.T) {
	input := strings.Repeat(sample, 20)

	want, err := csv.ReadString(input, csv.ReaderOptions{})
	require.NoError(t, err)

	for _, size := range []int{1, 2, 3, 7, 64, 4096} {
		r := newReader(t, csv.ReaderOptions{ChunkSize: size})
		got, err := r.ReadFrom(context.Background(), strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, fields(want.Rows), fields(got.Rows), "chunk size %d", size)
	}

	r := newReader(t, csv.ReaderOptions{})
	got, err := r.ReadFrom(context.Background(), iotest.OneByteReader(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, fields(want.Rows), fields(got.Rows))
}

func TestReadFrom_SourceError(t *testing.T) {
	errBoom := errors.New("boom")
	r := newReader(t, csv.ReaderOptions{})

	_, err := r.ReadFrom(context.Background(), iotest.ErrReader(errBoom))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "csv: read source")
}

func TestRead_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newReader(t, csv.ReaderOptions{})
	_, err := r.ReadString(ctx, "a,b\n")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadBytes_NoTrim(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{})

	result, err := r.ReadBytes(context.Background(), []byte("  a,b"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"  a", "b"}}, fields(result.Rows))

	result, err = r.ReadString(context.Background(), "  a,b  \n\n")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, fields(result.Rows))
}

func TestReadString_Empty(t *testing.T) {
	result, err := csv.ReadString("", csv.ReaderOptions{Headers: true})
	require.NoError(t, err)
	assert.Nil(t, result.Headers)
	assert.Empty(t, result.Rows)
}

func TestReader_Reusable(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Headers: true, Strict: true})

	first, err := r.ReadString(context.Background(), "a,b\n1,2\n")
	require.NoError(t, err)
	second, err := r.ReadString(context.Background(), "x\n9\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first.Headers)
	assert.Equal(t, []string{"x"}, second.Headers)
	assert.Equal(t, [][]string{{"9"}}, fields(second.Rows))
}

func TestReadAll(t *testing.T) {
	result, err := csv.ReadAll(strings.NewReader(sample), csv.ReaderOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)

	_, err = csv.ReadAll(strings.NewReader(sample), csv.ReaderOptions{Quote: "ab"})
	var oerr *csv.OptionsError
	assert.ErrorAs(t, err, &oerr)
}

func TestRead_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newReader(t, csv.ReaderOptions{Logger: logger, Range: csv.NewRange(1, 2)})

	_, err := r.ReadString(context.Background(), "a\nb\nc\n")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"csv read started"`)
	assert.Contains(t, out, `"msg":"csv range end reached, source stopped"`)
	assert.Contains(t, out, `"msg":"csv read finished"`)
	assert.Contains(t, out, `"session":"`)
	assert.Contains(t, out, `"rows":1`)
}

// countingSource counts Next calls.
type countingSource struct {
	chunks  []string
	calls   int
	stopped bool
}

func (s *countingSource) Next(ctx context.Context) ([]byte, error) {
	s.calls++
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return []byte(chunk), nil
}

func (s *countingSource) Stop() {
	s.stopped = true
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}
