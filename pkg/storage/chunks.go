package storage

import "io"

// ChunkIterator yields the contents of a back-end stream in bounded
// chunks. Next returns nil once the stream is exhausted, at which point
// the underlying reader has been closed.
type ChunkIterator struct {
	rc        io.ReadCloser
	chunkSize int
	done      bool
}

func NewChunkIterator(rc io.ReadCloser, chunkSize int) *ChunkIterator {
	if chunkSize <= 0 {
		chunkSize = 16 * 1024
	}

	return &ChunkIterator{rc: rc, chunkSize: chunkSize}
}

func (it *ChunkIterator) Next() ([]byte, error) {
	if it.done {
		return nil, nil
	}

	chunk := make([]byte, it.chunkSize)
	n, err := io.ReadFull(it.rc, chunk)
	switch {
	case err == io.EOF:
		it.close()
		return nil, nil
	case err == io.ErrUnexpectedEOF:
		it.close()
		return chunk[:n], nil
	case err != nil:
		it.close()
		return nil, err
	default:
		return chunk[:n], nil
	}
}

// ReadAll drains the iterator into memory.
func (it *ChunkIterator) ReadAll() ([]byte, error) {
	var all []byte
	for {
		chunk, err := it.Next()
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			return all, nil
		}
		all = append(all, chunk...)
	}
}

// Reader exposes the remaining bytes as a plain reader. The caller owns
// closing via Close.
func (it *ChunkIterator) Reader() io.Reader {
	return it.rc
}

func (it *ChunkIterator) Close() error {
	if it.done {
		return nil
	}

	it.done = true

	return it.rc.Close()
}

func (it *ChunkIterator) close() {
	if !it.done {
		it.done = true
		_ = it.rc.Close()
	}
}
