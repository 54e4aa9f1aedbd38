package upload

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeUploadFromBytes(t *testing.T) {
	u, err := MakeUpload([]byte("hello world"))
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)
	require.Equal(t, int64(11), u.Size())
	require.Equal(t, DefaultContentType, u.ContentType())

	data, err := io.ReadAll(u.Stream())
	require.NoErrorf(t, err, "reading stream failed: %s", err)
	require.Equal(t, "hello world", string(data))
}

func TestMakeUploadFromString(t *testing.T) {
	u, err := MakeUpload("some text")
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)
	require.Equal(t, int64(9), u.Size())
	require.Equal(t, "text/plain", u.ContentType())
}

func TestMakeUploadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("file content"), 0644))

	f, err := os.Open(path)
	require.NoErrorf(t, err, "open failed: %s", err)
	defer f.Close()

	u, err := MakeUpload(f, WithFilename("f.bin"), WithContentType("application/x-test"))
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)
	require.Equal(t, int64(12), u.Size())
	require.Equal(t, "f.bin", u.Filename())
	require.Equal(t, "application/x-test", u.ContentType())
}

func TestMakeUploadFromPlainReaderBuffers(t *testing.T) {
	u, err := MakeUpload(io.LimitReader(strings.NewReader("abcdef"), 4))
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)
	require.Equal(t, int64(4), u.Size())

	// Buffered uploads are still rewindable.
	require.NoError(t, u.Reset())
	data, err := io.ReadAll(u.Stream())
	require.NoError(t, err)
	require.Equal(t, "abcd", string(data))
}

func TestMakeUploadRejectsUnsupportedKind(t *testing.T) {
	_, err := MakeUpload(42)
	require.Error(t, err)
}

func TestHashingReaderTracksHashAndPosition(t *testing.T) {
	content := []byte("hello world")
	u, err := MakeUpload(content)
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)

	hr, err := u.HashingReader()
	require.NoErrorf(t, err, "HashingReader failed: %s", err)

	data, err := io.ReadAll(hr)
	require.NoError(t, err)
	require.Equal(t, content, data)
	require.Equal(t, int64(len(content)), hr.BytesRead())
	require.Equal(t, fmt.Sprintf("%x", md5.Sum(content)), hr.Hash())
}

func TestHashingReaderChunks(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 10)
	u, err := MakeUpload(content)
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)

	hr, err := u.HashingReader()
	require.NoErrorf(t, err, "HashingReader failed: %s", err)

	var chunks [][]byte
	for {
		chunk, err := hr.NextChunk(4)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 3)
	require.Equal(t, 4, len(chunks[0]))
	require.Equal(t, 2, len(chunks[2]))
}

func TestEmptyUpload(t *testing.T) {
	u, err := MakeUpload([]byte{})
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)
	require.Equal(t, int64(0), u.Size())

	hr, err := u.HashingReader()
	require.NoErrorf(t, err, "HashingReader failed: %s", err)

	data, err := io.ReadAll(hr)
	require.NoError(t, err)
	require.Empty(t, data)
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", hr.Hash())
}

func TestResetRestartsHashing(t *testing.T) {
	u, err := MakeUpload([]byte("abc"))
	require.NoErrorf(t, err, "MakeUpload failed: %s", err)

	hr, err := u.HashingReader()
	require.NoErrorf(t, err, "HashingReader failed: %s", err)
	_, _ = io.ReadAll(hr)
	first := hr.Hash()

	hr2, err := u.HashingReader()
	require.NoErrorf(t, err, "second HashingReader failed: %s", err)
	_, _ = io.ReadAll(hr2)
	require.Equal(t, first, hr2.Hash())
}
