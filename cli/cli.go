package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/root-talis/junban/app/config"
	actx "github.com/root-talis/junban/app/context"
)

// CLI is the command line interface of junban.
type CLI struct {
	Up     Up     `kong:"cmd,help='Migrate forward.'"`
	Down   Down   `kong:"cmd,help='Migrate backward.'"`
	New    NewCmd `kong:"cmd,help='Create a new migration.'"`
	Status Status `kong:"cmd,help='Show the state of every migration.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`

	ConfigFile string `kong:"default='${configFile}',help='Path to the configuration file.'"`
	Config     string `kong:"short='c',help='Name of the configuration to use, from migration.configuration in the configuration file.'"`

	Path   string `kong:"help='Directory holding the migration files.'"`
	Driver string `kong:"help='Database driver: mysql or sqlite.'"`
	DSN    string `kong:"name='dsn',help='Database connection string.'"`
	Table  string `kong:"help='Name of the version table.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(name, configFilePath string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name(name),
		kong.Description("Timestamp-ordered database migrations."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyFlags overrides settings with the flags that were set.
func (c *CLI) ApplyFlags(settings *config.Settings) {
	settings.Merge(config.Settings{
		Path:   c.Path,
		Table:  c.Table,
		Driver: c.Driver,
		DSN:    c.DSN,
	})
}
