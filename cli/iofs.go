package cli

import (
	"io/fs"
	"sort"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// ioFS exposes a vfs.FileSystem as an fs.FS so the migration catalog can be
// read from whatever filesystem the app runs on.
type ioFS struct {
	fs vfs.FileSystem
}

var (
	_ fs.ReadDirFS = ioFS{}
	_ fs.StatFS    = ioFS{}
)

func (f ioFS) Open(name string) (fs.File, error) {
	return f.fs.Open(name) //nolint:wrapcheck
}

func (f ioFS) Stat(name string) (fs.FileInfo, error) {
	return f.fs.Stat(name) //nolint:wrapcheck
}

func (f ioFS) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := vfs.ReadDir(f.fs, name)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	return entries, nil
}
