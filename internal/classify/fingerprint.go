package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fingerprintSampleSize bounds how much of a file is hashed. Large media
// files are identified by their leading bytes plus size and mtime, which is
// stable across moves and cheap even for multi-gigabyte inputs.
const fingerprintSampleSize = 256 * 1024

// Fingerprint derives a stable content identity for a file: SHA-256 over the
// leading bytes, combined with the file size and modification time. Two files
// with the same fingerprint are treated as the same content for cache reuse.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.CopyN(hasher, f, fingerprintSampleSize); err != nil && err != io.EOF {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	fmt.Fprintf(hasher, "|%d|%d", info.Size(), info.ModTime().UnixNano())
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
