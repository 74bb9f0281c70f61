//go:build !unix

package csv

import (
	"fmt"
	"os"
)

// OpenFile returns a Source over the named file. Without mmap support the
// file is read into memory and delivered as a single chunk; size is ignored.
func OpenFile(name string, size int) (Source, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("csv: read file: %w", err)
	}
	return NewBytesSource(data), nil
}
