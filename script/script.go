// Package script turns migration sources into step functions.
package script

import (
	"github.com/root-talis/junban/migration"
)

// Program is a compiled migration. Up is nil when the source defines no
// forward step. DownTrivial means the source has nothing to undo, so reverting
// it only moves the version marker.
type Program struct {
	Up          migration.StepFunc
	Down        migration.StepFunc
	DownTrivial bool
}

type Compiler interface {
	Compile(mig migration.Descriptor, src []byte) (*Program, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(mig migration.Descriptor, src []byte) (*Program, error)

func (f CompilerFunc) Compile(mig migration.Descriptor, src []byte) (*Program, error) {
	return f(mig, src)
}
