package dejs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FilesystemSource reads templates from the local filesystem. Logical paths
// are interpreted below Root; an empty Root uses them as OS paths directly.
type FilesystemSource struct {
	root string
}

// NewFilesystemSource creates a filesystem source rooted at root
func NewFilesystemSource(root string) *FilesystemSource {
	return &FilesystemSource{root: root}
}

// Root returns the configured root directory
func (s *FilesystemSource) Root() string {
	return s.root
}

func (s *FilesystemSource) osPath(path string) string {
	if s.root == "" {
		return filepath.FromSlash(path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Exists reports whether a regular file exists at path
func (s *FilesystemSource) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(s.osPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, NewSourceError(ErrMsgSourceRead, path, err)
	}
	return info.Mode().IsRegular(), nil
}

// Read returns the file contents at path
func (s *FilesystemSource) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.osPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewSourceError(ErrMsgSourceRead, path, ErrTemplateNotFound)
		}
		return "", NewSourceError(ErrMsgSourceRead, path, err)
	}
	return string(data), nil
}
