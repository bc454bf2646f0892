package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ComputeFileHash returns the hex sha256 digest of the file at path,
// streaming so archives never load fully into memory.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile compares the file's sha256 digest against expected, which
// may carry a "sha256:" prefix. Comparison is case-insensitive.
func VerifyFile(path, expected string) error {
	want := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(expected)), "sha256:")
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}
	if got != want {
		return &ChecksumError{Path: path, Expected: want, Got: got}
	}
	return nil
}
