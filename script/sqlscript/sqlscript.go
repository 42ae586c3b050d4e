// Package sqlscript compiles declarative migrations: plain SQL with the
// backward statements separated by a "-- down" line.
package sqlscript

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/script"
)

var downMarker = regexp.MustCompile(`(?i)^\s*--\s*down\s*$`) //nolint:gochecknoglobals

type compiler struct{}

func NewCompiler() script.Compiler {
	return compiler{}
}

// Sections splits src into its forward and backward parts. Blank lines and
// comment lines are dropped from both.
func Sections(src []byte) (up string, down string, err error) {
	var upLines, downLines []string
	inDown := false

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if !inDown && downMarker.MatchString(line) {
			inDown = true
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		if inDown {
			downLines = append(downLines, line)
		} else {
			upLines = append(upLines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("failed to read sql: %w", err)
	}

	return strings.Join(upLines, "\n"), strings.Join(downLines, "\n"), nil
}

func (compiler) Compile(mig migration.Descriptor, src []byte) (*script.Program, error) {
	up, down, err := Sections(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", mig.FileName, err)
	}

	prog := &script.Program{}

	if up != "" {
		prog.Up = execStep(up)
	}

	if down == "" {
		prog.DownTrivial = true
	} else {
		prog.Down = execStep(down)
	}

	return prog, nil
}

func execStep(statements string) migration.StepFunc {
	return func(ctx context.Context, tx migration.Tx) error {
		_, err := tx.Exec(ctx, statements)
		return err
	}
}
