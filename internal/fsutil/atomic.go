// Package fsutil holds the filesystem helpers shared by the copy resolver,
// the bundle pipeline and the page renderer. Every write lands in a temp file
// beside its destination and is renamed into place, so an interrupted build
// never leaves a half-written artifact under its final name.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// WriteFileAtomic writes data to name through a temp file and rename.
func WriteFileAtomic(fs afero.Fs, name string, data []byte) error {
	return writeAtomic(fs, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyFileAtomic copies src to dst byte for byte through a temp file and
// rename.
func CopyFileAtomic(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	return writeAtomic(fs, dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func writeAtomic(fs afero.Fs, name string, fill func(io.Writer) error) error {
	dir := path.Dir(ToSlash(name))
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+path.Base(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	_ = tmp.Close()

	if err := fs.Chmod(tmpName, filePerm); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", name, err)
	}

	if err := fs.Rename(tmpName, name); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}

	return nil
}

// Exists reports whether name can be stat'ed and opened for reading.
func Exists(fs afero.Fs, name string) bool {
	if _, err := fs.Stat(name); err != nil {
		return false
	}
	f, err := fs.Open(name)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// ToSlash normalizes OS separators to forward slashes. Rule paths are always
// slash-separated regardless of platform.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
