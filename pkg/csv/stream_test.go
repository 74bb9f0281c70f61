package csv_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapestone/shape-csvreader/pkg/csv"
)

func TestScanner_StreamRows(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		opts        csv.ReaderOptions
		wantHeaders []string
		want        [][]string
		wantErr     bool
	}{
		{
			name:        "simple CSV with headers",
			input:       "name,age\nAlice,30\nBob,25\n",
			opts:        csv.ReaderOptions{Headers: true},
			wantHeaders: []string{"name", "age"},
			want:        [][]string{{"Alice", "30"}, {"Bob", "25"}},
		},
		{
			name:  "CSV without headers",
			input: "Alice,30\nBob,25\n",
			want:  [][]string{{"Alice", "30"}, {"Bob", "25"}},
		},
		{
			name:  "quoted fields across chunks",
			input: "\"a,b\",\"c\nd\"\n\"e\"\"f\",g\n",
			want:  [][]string{{"a,b", "c\nd"}, {"e\"f", "g"}},
		},
		{
			name:  "range",
			input: "1\n2\n3\n4\n",
			opts:  csv.ReaderOptions{Range: csv.NewRange(2, 4)},
			want:  [][]string{{"2"}, {"3"}},
		},
		{
			name:    "strict error",
			input:   "a,b\n1\n",
			opts:    csv.ReaderOptions{Strict: true},
			want:    [][]string{{"a", "b"}},
			wantErr: true,
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.ChunkSize = 3
			r := newReader(t, tt.opts)

			sc := r.NewScanner(context.Background(), csv.NewReaderSource(strings.NewReader(tt.input), r.Options().ChunkSize))
			defer sc.Close()

			var got [][]string
			for sc.Scan() {
				got = append(got, sc.Row().Fields())
			}

			if tt.wantErr {
				assert.Error(t, sc.Err())
			} else {
				assert.NoError(t, sc.Err())
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantHeaders, sc.Headers())
			assert.False(t, sc.Scan())
		})
	}
}

func TestScanner_PullsLazily(t *testing.T) {
	src := &countingSource{chunks: []string{"a\n", "b\n", "c\n", "d\n"}}
	r := newReader(t, csv.ReaderOptions{})

	sc := r.NewScanner(context.Background(), src)
	require.True(t, sc.Scan())
	assert.Equal(t, []string{"a"}, sc.Row().Fields())
	assert.Equal(t, 1, src.calls)

	require.True(t, sc.Scan())
	assert.Equal(t, 2, src.calls)

	require.NoError(t, sc.Close())
	assert.True(t, src.stopped)
	assert.False(t, sc.Scan())
}

func TestRows_Iterator(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Headers: true})

	var names []string
	for row, err := range r.Rows(context.Background(), csv.NewBytesSource([]byte("name\nAlice\nBob\n"))) {
		require.NoError(t, err)
		name, _ := row.GetByName("name")
		names = append(names, name)
	}
	assert.Equal(t, []string{"Alice", "Bob"}, names)
}

func TestRows_BreakStopsSource(t *testing.T) {
	src := &countingSource{chunks: []string{"a\n", "b\n", "c\n"}}
	r := newReader(t, csv.ReaderOptions{})

	for row := range r.Rows(context.Background(), src) {
		assert.Equal(t, []string{"a"}, row.Fields())
		break
	}
	assert.True(t, src.stopped)
}

func TestRows_YieldsError(t *testing.T) {
	r := newReader(t, csv.ReaderOptions{Strict: true})

	var errs []error
	rows := 0
	for _, err := range r.Rows(context.Background(), csv.NewBytesSource([]byte("a,b,\n"))) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows++
	}
	assert.Zero(t, rows)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], csv.ErrTrailingDelimiter)
}
