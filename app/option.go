package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "github.com/root-talis/junban/app/context"
)

// Option is a function that allows configuring the application.
type Option func(*App)

// WithContext sets the main context.
func WithContext(ctx context.Context) Option {
	return func(app *App) {
		app.ctx.Ctx = ctx
	}
}

// WithEnv replaces the environment JUNBAN_* overrides are read from.
func WithEnv(env actx.Environment) Option {
	return func(app *App) {
		app.ctx.Env = env
	}
}

// WithFDs sets the file descriptors used by the application.
func WithFDs(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(app *App) {
		app.ctx.Stdin = stdin
		app.ctx.Stdout = stdout
		app.ctx.Stderr = stderr
	}
}

// WithFS sets the filesystem holding the config file and the migrations.
func WithFS(fs vfs.FileSystem) Option {
	return func(app *App) {
		app.ctx.FS = fs
	}
}

// WithLogger logs to the stderr given to WithFDs, which must precede it.
// Colors are used only when color is set. The level follows --log-level.
func WithLogger(color bool) Option {
	return func(app *App) {
		app.logLevel = &slog.LevelVar{}
		app.ctx.Logger = slog.New(tint.NewHandler(app.ctx.Stderr, &tint.Options{
			Level:      app.logLevel,
			NoColor:    !color,
			TimeFormat: time.TimeOnly,
		}))
		slog.SetDefault(app.ctx.Logger)
	}
}

// WithTimeNow sets the clock new migrations are named after.
func WithTimeNow(timeNowFn func() time.Time) Option {
	return func(app *App) {
		app.ctx.TimeNow = timeNowFn
	}
}
