// Package hasher computes the MD5, SHA-1, and SHA-256 digests of a sample in
// a single pass, alongside its size.
package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// BufferSize is the chunk size used when streaming a file through the
// digest functions.
const BufferSize = 8192

// Digest holds the three digests and size produced by a single hashing pass.
type Digest struct {
	MD5    string
	SHA1   string
	SHA256 string
	Size   int64
}

// countingWriter tracks the number of bytes written through it.
type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// Hash reads r to EOF, computing MD5, SHA-1, and SHA-256 digests and the
// total byte count in one pass.
func Hash(r io.Reader) (Digest, error) {
	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()
	counter := &countingWriter{}

	mw := io.MultiWriter(md5h, sha1h, sha256h, counter)
	buf := make([]byte, BufferSize)
	if _, err := io.CopyBuffer(mw, r, buf); err != nil {
		return Digest{}, err
	}

	return Digest{
		MD5:    hexSum(md5h),
		SHA1:   hexSum(sha1h),
		SHA256: hexSum(sha256h),
		Size:   counter.n,
	}, nil
}

// HashFile opens path and hashes its contents.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()

	return Hash(f)
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
