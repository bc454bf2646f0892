package fsutil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxEntryBytes is the upper bound on a single extracted entry (256 MB).
// The embeddable runtime archive holds nothing near this size; anything
// larger is a decompression bomb.
const maxEntryBytes = 256 << 20

// Unzip expands the archive at src into destDir, creating destDir if
// needed. Entry paths are confined to destDir; entries that would escape
// it fail the whole expansion.
func Unzip(src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	root := filepath.Clean(destDir)
	for _, f := range r.File {
		if err := extractEntry(f, root); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes destination", f.Name)
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if f.UncompressedSize64 > maxEntryBytes {
		return fmt.Errorf("archive entry %q exceeds %d bytes", f.Name, int64(maxEntryBytes))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, io.LimitReader(rc, maxEntryBytes))
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("extract entry %q: %w", f.Name, copyErr)
	}
	return closeErr
}
