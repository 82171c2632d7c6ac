package project

import (
	"crypto/sha256"
	"io"
	"os"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// HashFile digests a file's bytes.
func HashFile(path string) (Digest, error) {
	// #nosec G304 -- path comes from the module manifest
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Digest{}, err
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Combine builds a module hash: H( content || dep1 || dep2 ... ).
// The dep order must be deterministic; callers pass them sorted by name.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
