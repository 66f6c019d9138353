// Package extractor implements C8: extracting a password-protected .7z
// archive into a destination directory.
package extractor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/sevenzip"
)

// Password is the literal archive password every sample corpus is encrypted
// with (spec.md §6).
const Password = "infected"

// fileMode is applied to every extracted regular file, dropping any
// executable bit the archive metadata may have carried (spec.md §4.8:
// "prevent inadvertent execution").
const fileMode = 0o644

// Extract opens archivePath with Password and extracts its contents into
// destDir. If destDir already exists, extraction is skipped entirely
// (spec.md §4.8: "if the computed destination path does not exist").
func Extract(archivePath, destDir string) error {
	if _, err := os.Stat(destDir); err == nil {
		return nil
	}

	rc, err := sevenzip.OpenReaderWithPassword(archivePath, Password)
	if err != nil {
		return fmt.Errorf("extractor: open %s: %w", archivePath, err)
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("extractor: mkdir %s: %w", destDir, err)
	}

	for _, f := range rc.File {
		if err := extractEntry(f, destDir); err != nil {
			return fmt.Errorf("extractor: extract %s: %w", f.Name, err)
		}
	}

	return nil
}

// EntryCount opens archivePath with Password and returns the number of
// entries it declares, used to populate t_package.fcount at registration
// time (original_source/file_handler.py: add_archive's
// len(archive.getnames())).
func EntryCount(archivePath string) (int, error) {
	rc, err := sevenzip.OpenReaderWithPassword(archivePath, Password)
	if err != nil {
		return 0, fmt.Errorf("extractor: open %s: %w", archivePath, err)
	}
	defer func() { _ = rc.Close() }()
	return len(rc.File), nil
}

// archiveEntry is the subset of sevenzip.File this package depends on,
// narrowed so the extraction loop is unit-testable without a real archive.
type archiveEntry interface {
	Open() (io.ReadCloser, error)
	FileInfo() os.FileInfo
}

func extractEntry(f *sevenzip.File, destDir string) error {
	return extractTo(f, destDir, f.Name)
}

func extractTo(entry archiveEntry, destDir, name string) error {
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(filepath.Join(destDir, name), 0o755)
	}

	dest := filepath.Join(destDir, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}

	// Mode is reasserted after Copy: OpenFile's mode argument is only
	// honored on creation, umask can still narrow it.
	return os.Chmod(dest, fileMode)
}
