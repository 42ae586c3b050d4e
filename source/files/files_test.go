package files_test

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/source/files"
)

func descr(version migration.Version, previous migration.Version, name, ext string) migration.Descriptor {
	kind := migration.Procedural
	if ext == "sql" {
		kind = migration.Declarative
	}
	fileName := version.Compact() + "_" + name + "." + ext
	return migration.Descriptor{
		Migration: migration.Migration{Version: version, Name: name},
		Previous:  previous,
		Kind:      kind,
		Path:      "migrations/" + fileName,
		FileName:  fileName,
		Ext:       ext,
	}
}

var availableMigrationsTestTable = []struct { // nolint:gochecknoglobals
	name                    string
	expectErrorWhenCreating bool
	expectErrorWhenCalling  bool
	directory               string
	fs                      fstest.MapFS
	options                 []files.Option
	expectedMigrations      []migration.Descriptor
}{
	// -- success tests ------
	/* s0 */ {
		name:      "test s0: should correctly list all migrations (1)",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s1 */ {
		name:      "test s1: should list migrations sorted and linked to their predecessors",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211224091800_add_users.sql": {},
			"migrations/20211224081255_initial.lua":   {},
			"migrations/20220101000000_indexes.sql":   {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224081255, migration.Epoch, "initial", "lua"),
			descr(20211224091800, 20211224081255, "add_users", "sql"),
			descr(20220101000000, 20211224091800, "indexes", "sql"),
		},
	},
	/* s2 */ {
		name:      "test s2: should return an empty list for an empty directory",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations": {Mode: fs.ModeDir},
		},
		expectedMigrations: []migration.Descriptor{},
	},
	/* s3 */ {
		name:      "test s3: should skip on bad version format (too short)",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/2021122409180_init.sql":       {},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s4 */ {
		name:      "test s4: should skip on bad version format (not a digit)",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/V0211224091800_init.sql":      {},
			"migrations/2021122409180a_init.sql":      {},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s5 */ {
		name:      "test s5: should skip on version that is not a date",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211399091800_init.sql":      {},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s6 */ {
		name:      "test s6: should skip on bad migration name",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211224091700init.sql":       {},
			"migrations/20211224091701.sql":           {},
			"migrations/20211224091702_.sql":          {},
			"migrations/20211224091703_init":          {},
			"migrations/20211224091704_init.":         {},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s7 */ {
		name:      "test s7: should skip files with unrecognized extensions",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211224091700_notes.txt":     {},
			"migrations/README.md":                    {},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s8 */ {
		name:      "test s8: should not care about other directories",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                                      {Mode: fs.ModeDir},
			"20211224091100_init.sql":                         {},
			"migrations/subdirectory/20211224091100_init.sql": {},
			"sibling/20211224091100_init.sql":                 {},
			"migrations/20211224091800_add_users.sql":         {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s9 */ {
		name:      "test s9: should skip directories with matching name",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211224091700_init.sql":      {Mode: fs.ModeDir},
			"migrations/20211224091800_add_users.sql": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "add_users", "sql"),
		},
	},
	/* s10 */ {
		name:      "test s10: should respect custom extensions",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                              {Mode: fs.ModeDir},
			"migrations/20211224091700_init.lua":      {},
			"migrations/20211224091800_add_users.SQL": {},
		},
		options: []files.Option{files.WithExtensions(".sql")},
		expectedMigrations: []migration.Descriptor{
			{
				Migration: migration.Migration{Version: 20211224091800, Name: "add_users"},
				Previous:  migration.Epoch,
				Kind:      migration.Declarative,
				Path:      "migrations/20211224091800_add_users.SQL",
				FileName:  "20211224091800_add_users.SQL",
				Ext:       "sql",
			},
		},
	},
	/* s11 */ {
		name:      "test s11: should keep dots inside migration names",
		directory: "migrations/",
		fs: fstest.MapFS{
			"migrations":                         {Mode: fs.ModeDir},
			"migrations/20211224091800_v1.2.lua": {},
		},
		expectedMigrations: []migration.Descriptor{
			descr(20211224091800, migration.Epoch, "v1.2", "lua"),
		},
	},

	// -- error tests --------
	/* e0 */ {
		name:      "test e0: should fail when directory does not exist",
		directory: "missing",
		fs: fstest.MapFS{
			"migrations":                            {Mode: fs.ModeDir},
			"migrations/20211224081255_initial.sql": {},
		},
		expectErrorWhenCreating: true,
	},
	/* e1 */ {
		name:      "test e1: should fail on duplicate migration version",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations":                                {Mode: fs.ModeDir},
			"migrations/20211224091800_add_users.sql":   {},
			"migrations/20211224091800_add_users_2.lua": {},
		},
		expectErrorWhenCalling: true,
	},
	/* e2 */ {
		name:      "test e2: should fail when directory is a file",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations": {},
		},
		expectErrorWhenCreating: true,
	},
	/* e3 */ {
		name:      "test e3: should fail when directory is a device",
		directory: "migrations",
		fs: fstest.MapFS{
			"migrations": {Mode: fs.ModeDevice},
		},
		expectErrorWhenCreating: true,
	},
}

func TestAvailableMigrations(t *testing.T) {
	t.Parallel()
	t.Logf("Should correctly test fetching of available migrations from a directory.")

	for _, test := range availableMigrationsTestTable {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			src, err := files.NewFilesSource(test.fs, test.directory, test.options...)

			if test.expectErrorWhenCreating {
				var discoveryErr *migration.DiscoveryError
				assert.ErrorAs(t, err, &discoveryErr)
				return
			} else if !assert.NoError(t, err) {
				return
			}

			migrations, err := src.AvailableMigrations()

			if test.expectErrorWhenCalling {
				assert.Error(t, err)
				return
			}

			if assert.NoError(t, err) {
				assert.Equal(t, test.expectedMigrations, migrations)
			}
		})
	}
}

func TestAvailableMigrationsDuplicate(t *testing.T) {
	t.Parallel()

	src, err := files.NewFilesSource(fstest.MapFS{
		"m/20211224091800_a.sql": {},
		"m/20211224091800_b.sql": {},
	}, "m")
	if !assert.NoError(t, err) {
		return
	}

	_, err = src.AvailableMigrations()
	assert.True(t, errors.Is(err, migration.ErrMigrationDuplicated))
}

func TestReadMigration(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/20211224091800_add_users.sql": {Data: []byte("create table users (id int);")},
	}

	src, err := files.NewFilesSource(fsys, "migrations")
	if !assert.NoError(t, err) {
		return
	}

	migrations, err := src.AvailableMigrations()
	if !assert.NoError(t, err) || !assert.Len(t, migrations, 1) {
		return
	}

	rdr, err := src.ReadMigration(migrations[0])
	if !assert.NoError(t, err) {
		return
	}
	defer rdr.Close()

	contents, err := io.ReadAll(rdr)
	assert.NoError(t, err)
	assert.Equal(t, "create table users (id int);", string(contents))

	_, err = src.ReadMigration(descr(20200101000000, migration.Epoch, "absent", "sql"))
	assert.Error(t, err)
}
