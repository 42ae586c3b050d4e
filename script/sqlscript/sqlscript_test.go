package sqlscript_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/script/sqlscript"
)

type recordingTx struct {
	statements []string
	err        error
}

func (tx *recordingTx) Exec(_ context.Context, query string, _ ...any) (int64, error) {
	tx.statements = append(tx.statements, query)
	return 0, tx.err
}

func (tx *recordingTx) Query(_ context.Context, query string, _ ...any) ([]map[string]any, error) {
	tx.statements = append(tx.statements, query)
	return nil, tx.err
}

var sectionsTestTable = []struct { //nolint:gochecknoglobals
	name         string
	src          string
	expectedUp   string
	expectedDown string
}{
	/* s0 */ {
		name:         "test s0: should split at down marker",
		src:          "create table foo (id int);\n-- down\ndrop table foo;\n",
		expectedUp:   "create table foo (id int);",
		expectedDown: "drop table foo;",
	},
	/* s1 */ {
		name:         "test s1: should match marker case insensitively with surrounding whitespace",
		src:          "create table foo (id int);\n  --   DoWn  \ndrop table foo;",
		expectedUp:   "create table foo (id int);",
		expectedDown: "drop table foo;",
	},
	/* s2 */ {
		name:         "test s2: should drop blank and comment lines from both sections",
		src:          "-- up\n\ncreate table foo (\n  id int\n);\n   -- a comment\n-- down\n\n-- dropping\ndrop table foo;\n\n",
		expectedUp:   "create table foo (\n  id int\n);",
		expectedDown: "drop table foo;",
	},
	/* s3 */ {
		name:       "test s3: should leave down empty without a marker",
		src:        "insert into foo values (1);\ninsert into foo values (2);",
		expectedUp: "insert into foo values (1);\ninsert into foo values (2);",
	},
	/* s4 */ {
		name:       "test s4: should leave down empty when marker is followed by comments only",
		src:        "insert into foo values (1);\n-- down\n-- nothing to do\n",
		expectedUp: "insert into foo values (1);",
	},
	/* s5 */ {
		name:         "test s5: should leave up empty when source starts with marker",
		src:          "-- down\ndrop table foo;",
		expectedDown: "drop table foo;",
	},
	/* s6 */ {
		name:       "test s6: should not treat markers with trailing text as a boundary",
		src:        "select 1;\n-- downgrade notes\nselect 2;",
		expectedUp: "select 1;\nselect 2;",
	},
	/* s7 */ {
		name:         "test s7: should handle windows line endings",
		src:          "select 1;\r\n-- down\r\nselect 2;\r\n",
		expectedUp:   "select 1;",
		expectedDown: "select 2;",
	},
}

func TestSections(t *testing.T) {
	t.Parallel()

	for _, test := range sectionsTestTable {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			up, down, err := sqlscript.Sections([]byte(test.src))
			if assert.NoError(t, err) {
				assert.Equal(t, test.expectedUp, up)
				assert.Equal(t, test.expectedDown, down)
			}
		})
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	mig := migration.Descriptor{FileName: "20220118115519_foo.sql", Ext: "sql"}
	compiler := sqlscript.NewCompiler()

	t.Run("should run each section as a single statement batch", func(t *testing.T) {
		t.Parallel()

		prog, err := compiler.Compile(mig, []byte("create table a (id int);\ncreate table b (id int);\n-- down\ndrop table b;\ndrop table a;"))
		if !assert.NoError(t, err) {
			return
		}
		assert.False(t, prog.DownTrivial)

		tx := &recordingTx{}
		assert.NoError(t, prog.Up(context.Background(), tx))
		assert.NoError(t, prog.Down(context.Background(), tx))
		assert.Equal(t, []string{
			"create table a (id int);\ncreate table b (id int);",
			"drop table b;\ndrop table a;",
		}, tx.statements)
	})

	t.Run("should mark empty down as trivial", func(t *testing.T) {
		t.Parallel()

		prog, err := compiler.Compile(mig, []byte("insert into foo values (1);\n-- down\n"))
		if assert.NoError(t, err) {
			assert.NotNil(t, prog.Up)
			assert.Nil(t, prog.Down)
			assert.True(t, prog.DownTrivial)
		}
	})

	t.Run("should leave up missing when forward section is empty", func(t *testing.T) {
		t.Parallel()

		prog, err := compiler.Compile(mig, []byte("-- nothing here\n-- down\ndrop table foo;"))
		if assert.NoError(t, err) {
			assert.Nil(t, prog.Up)
			assert.NotNil(t, prog.Down)
		}
	})

	t.Run("should return statement errors", func(t *testing.T) {
		t.Parallel()

		prog, err := compiler.Compile(mig, []byte("select 1;"))
		if !assert.NoError(t, err) {
			return
		}

		errExec := errors.New("exec failed")
		assert.ErrorIs(t, prog.Up(context.Background(), &recordingTx{err: errExec}), errExec)
	})
}
