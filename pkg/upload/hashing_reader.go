package upload

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
)

// DefaultChunkSize is the chunk size used when streaming content in and
// out of back-ends.
const DefaultChunkSize = 16 * 1024

// HashingReader tees everything read through it into a hash engine while
// tracking the number of bytes read. Uploads flow through one so the hash
// and size recorded in the catalog always describe the bytes the back-end
// actually received.
type HashingReader struct {
	r      io.Reader
	hasher hash.Hash
	read   int64
}

func NewHashingReader(r io.Reader) *HashingReader {
	return NewHashingReaderWithHash(r, md5.New())
}

// NewHashingReaderWithHash uses a caller supplied hash engine instead of
// the default MD5.
func NewHashingReaderWithHash(r io.Reader, h hash.Hash) *HashingReader {
	return &HashingReader{r: r, hasher: h}
}

func (h *HashingReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if n > 0 {
		_, _ = h.hasher.Write(p[:n])
		h.read += int64(n)
	}

	return n, err
}

// NextChunk reads up to chunkSize bytes. It returns nil once the stream is
// exhausted.
func (h *HashingReader) NextChunk(chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	chunk := make([]byte, chunkSize)
	n, err := io.ReadFull(h, chunk)
	switch {
	case err == io.EOF:
		return nil, nil
	case err == io.ErrUnexpectedEOF:
		return chunk[:n], nil
	case err != nil:
		return nil, err
	default:
		return chunk[:n], nil
	}
}

// Hash returns the hex digest of everything read so far.
func (h *HashingReader) Hash() string {
	return hex.EncodeToString(h.hasher.Sum(nil))
}

// BytesRead returns the number of bytes that flowed through the reader.
func (h *HashingReader) BytesRead() int64 {
	return h.read
}
