// Command junban applies timestamp-ordered database migrations.
package main

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/root-talis/junban/app"
	aerrors "github.com/root-talis/junban/app/errors"
)

type processEnv struct{}

func (processEnv) All() map[string]string {
	return env.ToMap(os.Environ())
}

func run() int {
	junban, err := app.New("junban",
		app.WithEnv(processEnv{}),
		app.WithFDs(os.Stdin, colorable.NewColorable(os.Stdout), colorable.NewColorable(os.Stderr)),
		app.WithFS(osfs.New()),
		app.WithLogger(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())),
	)
	if err != nil {
		aerrors.Log(nil, err)
		return 2
	}

	if err = junban.Run(os.Args[1:]); err != nil {
		aerrors.Log(junban.Logger(), err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
