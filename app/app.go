package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"github.com/root-talis/junban/app/config"
	actx "github.com/root-talis/junban/app/context"
	"github.com/root-talis/junban/cli"
)

// DefaultConfigFile is read from the working directory unless --config-file
// says otherwise.
const DefaultConfigFile = "junban.json"

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application.
func New(name string, opts ...Option) (*App, error) {
	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Env:     emptyEnv{},
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Stdin:   eofReader{},
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	var err error
	app.cli, err = cli.New(app.name, DefaultConfigFile)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := cfg.Load(); err != nil {
		return err //nolint:wrapcheck
	}

	settings, err := cfg.Resolve(app.cli.Config, app.ctx.Env.All())
	if err != nil {
		return err //nolint:wrapcheck
	}
	app.cli.ApplyFlags(&settings)
	app.ctx.Settings = settings

	app.ctx.Logger.Debug("resolved settings",
		"command", app.cli.Command(),
		"config", app.cli.Config,
		"path", settings.Path,
		"driver", settings.Driver,
		"table", settings.Table,
	)

	if err := app.cli.Execute(app.ctx); err != nil {
		return fmt.Errorf("%s failed: %w", app.cli.Command(), err)
	}

	return nil
}

// Logger returns the logger commands log to.
func (app *App) Logger() *slog.Logger {
	return app.ctx.Logger
}

type emptyEnv struct{}

func (emptyEnv) All() map[string]string { return map[string]string{} }

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
