package shader

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileProvider reads shader source files by slash-separated path.
// A missing file must produce an error satisfying errors.Is(err, fs.ErrNotExist).
type FileProvider interface {
	ReadFile(name string) ([]byte, error)
}

// OSFileProvider reads shader sources from the local file system, relative to Root.
type OSFileProvider struct {
	Root string
}

func (p OSFileProvider) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.Root, filepath.FromSlash(name)))
}

// FSFileProvider reads shader sources from an fs.FS such as an embed.FS.
type FSFileProvider struct {
	FS fs.FS
}

func (p FSFileProvider) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(p.FS, name)
}
