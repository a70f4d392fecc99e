package fs

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// MuxFS wraps the filesystem operations used by the proxy, so document reads
// and workspace scans can be faked in tests.
type MuxFS interface {
	WorkspaceRoot(path string) ([]byte, error)
	DirExists(path string) (bool, error)
	FileExists(path string) (bool, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data string) error
	WalkDir(root string, fn fs.WalkDirFunc) error
	MkdirAll(path string) error
	Remove(name string) error
}

type fsImpl struct{}

// New creates a new MuxFS.
func New() MuxFS {
	return fsImpl{}
}

// WorkspaceRoot returns the enclosing repository root for the given path.
func (fsImpl) WorkspaceRoot(path string) ([]byte, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = path
	return cmd.Output()
}

// ReadDir reads all the items in a directory (non-recursive)
func (fsImpl) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (fsImpl) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fsImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (fsImpl) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (fsImpl) WriteFile(name string, data string) error {
	return os.WriteFile(name, []byte(data), 0644)
}

// WalkDir walks the file tree rooted at root in lexical order.
func (fsImpl) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

func (fsImpl) Remove(name string) error { return os.Remove(name) }
