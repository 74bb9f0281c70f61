package csv

import (
	"context"
	"io"
	"sync"
)

// Source delivers input in chunks.
//
// Next returns the next chunk, or io.EOF once the input is exhausted. The
// returned slice is only valid until the following call. Stop is called when
// the read no longer needs input; it must be safe to call more than once and
// concurrently with Next.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Stop()
}

type readerSource struct {
	r    io.Reader
	buf  []byte
	eof  bool
	once sync.Once
	done chan struct{}
}

// NewReaderSource reads r in chunks of size bytes (DefaultChunkSize when
// size <= 0). Stop closes r if it is an io.Closer.
func NewReaderSource(r io.Reader, size int) Source {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &readerSource{
		r:    r,
		buf:  make([]byte, size),
		done: make(chan struct{}),
	}
}

func (s *readerSource) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-s.done:
			return nil, ErrSourceStopped
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if s.eof {
			return nil, io.EOF
		}

		n, err := s.r.Read(s.buf)
		if err == io.EOF {
			s.eof = true
			err = nil
		}
		if n > 0 || err != nil {
			return s.buf[:n], err
		}
	}
}

func (s *readerSource) Stop() {
	s.once.Do(func() {
		close(s.done)
		if c, ok := s.r.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

type bytesSource struct {
	b    []byte
	sent bool
}

// NewBytesSource delivers b as a single chunk.
func NewBytesSource(b []byte) Source {
	return &bytesSource{b: b}
}

func (s *bytesSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.sent {
		return nil, io.EOF
	}
	s.sent = true
	return s.b, nil
}

func (s *bytesSource) Stop() {}

// PushSource is a Source fed by a producer goroutine.
//
// Example:
//
//	src := csv.NewPushSource(4)
//	go func() {
//	    defer src.Close()
//	    for chunk := range chunks {
//	        if err := src.Push(ctx, chunk); err != nil {
//	            return // the read stopped or failed
//	        }
//	    }
//	}()
//	result, err := reader.Read(ctx, src)
type PushSource struct {
	chunks chan []byte
	closed chan struct{}
	done   chan struct{}

	closeOnce sync.Once
	stopOnce  sync.Once

	mu  sync.Mutex
	err error
}

// NewPushSource creates a push source that buffers up to buffer chunks.
func NewPushSource(buffer int) *PushSource {
	if buffer < 0 {
		buffer = 0
	}
	return &PushSource{
		chunks: make(chan []byte, buffer),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Push hands chunk to the reader, blocking while the buffer is full. The
// source takes ownership of chunk. Push returns ErrSourceStopped once the
// reader has stopped, and ErrSourceClosed after Close.
func (p *PushSource) Push(ctx context.Context, chunk []byte) error {
	select {
	case <-p.done:
		return ErrSourceStopped
	case <-p.closed:
		return ErrSourceClosed
	default:
	}

	select {
	case p.chunks <- chunk:
		return nil
	case <-p.done:
		return ErrSourceStopped
	case <-p.closed:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the end of the input. Chunks already pushed are still
// delivered.
func (p *PushSource) Close() {
	p.CloseWithError(nil)
}

// CloseWithError ends the input with err; the read fails with it once the
// buffered chunks are consumed. A nil err is a normal end of input.
func (p *PushSource) CloseWithError(err error) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.closed)
	})
}

// Next implements Source.
func (p *PushSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case chunk := <-p.chunks:
		return chunk, nil
	default:
	}

	select {
	case chunk := <-p.chunks:
		return chunk, nil
	case <-p.closed:
		select {
		case chunk := <-p.chunks:
			return chunk, nil
		default:
		}
		return nil, p.closeErr()
	case <-p.done:
		return nil, ErrSourceStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop implements Source. Blocked and later Push calls return
// ErrSourceStopped.
func (p *PushSource) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
}

func (p *PushSource) closeErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	return io.EOF
}
