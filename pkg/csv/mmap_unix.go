//go:build unix

package csv

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
)

// OpenFile returns a Source over the named file.
//
// The file is memory-mapped and served in chunks of size bytes
// (DefaultChunkSize when size <= 0), so a large file is paged in by the OS
// as the read advances instead of being loaded whole. The mapping is
// released at EOF or on Stop.
//
// Example usage:
//
//	src, err := csv.OpenFile("large.csv", 0)
//	if err != nil {
//	    return err
//	}
//	result, err := reader.Read(ctx, src)
func OpenFile(name string, size int) (Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("csv: open file: %w", err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("csv: stat file: %w", err)
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	src := &mmapSource{size: size}
	if stat.Size() == 0 {
		return src, nil
	}

	src.data, err = syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("csv: mmap file: %w", err)
	}
	return src, nil
}

type mmapSource struct {
	mu      sync.Mutex
	data    []byte
	off     int
	size    int
	stopped bool
}

func (s *mmapSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrSourceStopped
	}
	if s.off >= len(s.data) {
		s.unmap()
		return nil, io.EOF
	}

	end := min(s.off+s.size, len(s.data))
	chunk := s.data[s.off:end]
	s.off = end
	return chunk, nil
}

func (s *mmapSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.unmap()
}

func (s *mmapSource) unmap() {
	if s.data != nil {
		_ = syscall.Munmap(s.data)
		s.data = nil
		s.off = 0
	}
}
