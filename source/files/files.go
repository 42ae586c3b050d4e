package files

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/source"
)

const (
	ExtSQL = "sql"
	ExtLua = "lua"
)

type filesSource struct {
	fs            fs.FS
	migrationsDir string
	extensions    map[string]migration.Kind
}

type Option func(*filesSource)

// WithExtensions replaces the set of recognized file extensions. "sql" is
// always declarative, every other extension is procedural.
func WithExtensions(exts ...string) Option {
	return func(src *filesSource) {
		src.extensions = make(map[string]migration.Kind, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			src.extensions[ext] = kindOf(ext)
		}
	}
}

func NewFilesSource(fsys fs.FS, migrationsDirectory string, opts ...Option) (source.Source, error) {
	migrationsDirectory = path.Clean(migrationsDirectory)

	stat, err := fs.Stat(fsys, migrationsDirectory)
	if err != nil {
		return nil, &migration.DiscoveryError{
			Dir: migrationsDirectory,
			Err: fmt.Errorf("failed to stat migrations directory: %w", err),
		}
	}

	if !stat.IsDir() {
		return nil, &migration.DiscoveryError{Dir: migrationsDirectory, Err: migration.ErrNotADirectory}
	}

	src := &filesSource{
		fs:            fsys,
		migrationsDir: migrationsDirectory,
	}
	WithExtensions(ExtSQL, ExtLua)(src)

	for _, opt := range opts {
		opt(src)
	}

	return src, nil
}

func (src *filesSource) AvailableMigrations() ([]migration.Descriptor, error) {
	dirEntries, err := fs.ReadDir(src.fs, src.migrationsDir)
	if err != nil {
		return nil, &migration.DiscoveryError{
			Dir: src.migrationsDir,
			Err: fmt.Errorf("failed to read contents of migrations directory: %w", err),
		}
	}

	result := make([]migration.Descriptor, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}

		if descr, ok := src.parseFileName(entry.Name()); ok {
			result = append(result, descr)
		}
	}

	// file name order is chronological order thanks to the fixed-width prefix
	sort.Slice(result, func(i, j int) bool {
		return result[i].FileName < result[j].FileName
	})

	previous := migration.Epoch
	for i := range result {
		if i > 0 && result[i-1].Version == result[i].Version {
			return nil, &migration.DiscoveryError{
				Dir: src.migrationsDir,
				Err: fmt.Errorf(
					"%w: migration %d exists as \"%s\" and \"%s\"",
					migration.ErrMigrationDuplicated,
					result[i].Version,
					result[i-1].FileName,
					result[i].FileName,
				),
			}
		}

		result[i].Previous = previous
		previous = result[i].Version
	}

	return result, nil
}

func (src *filesSource) ReadMigration(mig migration.Descriptor) (io.ReadCloser, error) {
	file, err := src.fs.Open(mig.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration %s: %w", mig.FileName, err)
	}
	return file, nil
}

func (src *filesSource) parseFileName(fileName string) (migration.Descriptor, bool) {
	if len(fileName) < migration.VersionLength+2 || fileName[migration.VersionLength] != '_' {
		return migration.Descriptor{}, false
	}

	compact := fileName[:migration.VersionLength]
	for _, c := range compact {
		if c < '0' || c > '9' {
			return migration.Descriptor{}, false
		}
	}

	t, err := time.Parse("20060102150405", compact)
	if err != nil {
		return migration.Descriptor{}, false
	}

	rest := fileName[migration.VersionLength+1:]
	dot := strings.LastIndex(rest, ".")
	if dot <= 0 || dot == len(rest)-1 {
		return migration.Descriptor{}, false
	}

	name, ext := rest[:dot], strings.ToLower(rest[dot+1:])
	kind, ok := src.extensions[ext]
	if !ok {
		return migration.Descriptor{}, false
	}

	return migration.Descriptor{
		Migration: migration.Migration{
			Version: migration.VersionFromTime(t),
			Name:    name,
		},
		Kind:     kind,
		Path:     path.Join(src.migrationsDir, fileName),
		FileName: fileName,
		Ext:      ext,
	}, true
}

func kindOf(ext string) migration.Kind {
	if ext == ExtSQL {
		return migration.Declarative
	}
	return migration.Procedural
}
