package bumpkit

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileAccess is the minimal filesystem surface the manifest layer needs.
type FileAccess interface {
	Exists(path string) bool
	Read(path string) (string, error)
	Write(path, content string) error
}

// AferoFileAccess implements FileAccess on top of an afero filesystem.
type AferoFileAccess struct {
	fs afero.Fs
}

// NewFileAccess wraps an afero filesystem.
func NewFileAccess(fsys afero.Fs) *AferoFileAccess {
	return &AferoFileAccess{fs: fsys}
}

// NewOSFileAccess returns a FileAccess whose relative paths resolve against
// root on the local disk.
func NewOSFileAccess(root string) *AferoFileAccess {
	return NewFileAccess(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// Fs exposes the underlying filesystem.
func (a *AferoFileAccess) Fs() afero.Fs {
	return a.fs
}

func (a *AferoFileAccess) Exists(path string) bool {
	info, err := a.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func (a *AferoFileAccess) Read(path string) (string, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &FileNotFoundError{Path: path}
		}
		return "", err
	}
	return string(data), nil
}

// Write replaces the file through a temp file in the same directory followed
// by a rename, so a crash never leaves a truncated manifest behind.
func (a *AferoFileAccess) Write(path, content string) error {
	mode := os.FileMode(0644)
	if info, err := a.fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(a.fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		a.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		a.fs.Remove(tmpName)
		return err
	}
	if err := a.fs.Chmod(tmpName, mode); err != nil {
		a.fs.Remove(tmpName)
		return err
	}
	if err := a.fs.Rename(tmpName, path); err != nil {
		a.fs.Remove(tmpName)
		return err
	}
	return nil
}
