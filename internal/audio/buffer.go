package audio

import (
	"context"
	"io"
	"sync"
)

// Buffer is an in-memory asset filled progressively by a download. Readers
// created with NewReader block until more data arrives.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	total   int64
	done    bool
	err     error
	changed chan struct{}
}

// NewBuffer creates an empty buffer expecting total bytes (-1 if unknown).
func NewBuffer(total int64) *Buffer {
	return &Buffer{
		total:   total,
		changed: make(chan struct{}),
	}
}

// NewCompleteBuffer wraps data that is already fully available.
func NewCompleteBuffer(data []byte) *Buffer {
	b := NewBuffer(int64(len(data)))
	b.data = data
	b.done = true
	close(b.changed)
	return b
}

func (b *Buffer) notifyLocked() {
	close(b.changed)
	if !b.done {
		b.changed = make(chan struct{})
	}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return 0, io.ErrClosedPipe
	}
	b.data = append(b.data, p...)
	b.notifyLocked()
	return len(p), nil
}

// Close marks the download as complete.
func (b *Buffer) Close() error {
	return b.CloseWithError(nil)
}

// CloseWithError ends the download. Readers see err once they have consumed
// the data received so far.
func (b *Buffer) CloseWithError(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return nil
	}
	b.err = err
	b.done = true
	if err == nil {
		b.total = int64(len(b.data))
	}
	b.notifyLocked()
	return nil
}

// Complete reports whether the whole asset has been received successfully.
func (b *Buffer) Complete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done && b.err == nil
}

func (b *Buffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Buffer) Len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data))
}

// Total is the expected size, or -1 when the server did not announce one.
func (b *Buffer) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Fraction returns the downloaded share of the asset, or -1 if unknown.
func (b *Buffer) Fraction() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done && b.err == nil {
		return 1
	}
	if b.total <= 0 {
		return -1
	}
	f := float64(len(b.data)) / float64(b.total)
	if f > 1 {
		return 1
	}
	return f
}

// Bytes returns the full asset. Only meaningful once Complete is true.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Wait blocks until the download finishes.
func (b *Buffer) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.done {
			err := b.err
			b.mu.Unlock()
			return err
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NewReader returns a reader over the asset from the start that blocks while
// waiting for data. The reader is not an io.Seeker, so decoders stream it
// rather than scanning the whole asset up front.
func (b *Buffer) NewReader(ctx context.Context) io.ReadCloser {
	return &bufferReader{buf: b, ctx: ctx}
}

type bufferReader struct {
	buf    *Buffer
	ctx    context.Context
	off    int
	closed bool
}

func (r *bufferReader) Read(p []byte) (int, error) {
	for {
		if r.closed {
			return 0, io.ErrClosedPipe
		}

		b := r.buf
		b.mu.Lock()
		if r.off < len(b.data) {
			n := copy(p, b.data[r.off:])
			r.off += n
			b.mu.Unlock()
			return n, nil
		}
		if b.done {
			err := b.err
			b.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ch:
		case <-r.ctx.Done():
			return 0, r.ctx.Err()
		}
	}
}

func (r *bufferReader) Close() error {
	r.closed = true
	return nil
}
