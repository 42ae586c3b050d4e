package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/root-talis/junban/driver"
)

const (
	DefaultPath   = "./migrations"
	DefaultDriver = "sqlite"

	// EnvPrefix prefixes the environment variables overriding settings.
	EnvPrefix = "JUNBAN_"
)

var ErrUnknownConfiguration = errors.New("configuration does not exist")

// Config represents the configuration file, backed by a filesystem.
type Config struct {
	Migration Migration `json:"migration"`

	fs   vfs.FileSystem
	path string
}

// Settings is everything a run needs to find its migrations and database.
type Settings struct {
	// Path is the directory holding the migration files.
	Path  string `json:"path,omitempty"   env:"PATH"`
	Table string `json:"table,omitempty"  env:"TABLE"`
	// Driver is either mysql or sqlite.
	Driver string `json:"driver,omitempty" env:"DRIVER"`
	DSN    string `json:"dsn,omitempty"    env:"DSN"`
	// Vars are handed to procedural migrations as their config table.
	Vars map[string]string `json:"vars,omitempty"`
}

// Migration is the "migration" section of the configuration file. Named
// configurations are picked with the --config flag and override the settings
// around them.
type Migration struct {
	Settings
	Configuration map[string]Settings `json:"configuration,omitempty"`
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Names returns the names of all named configurations, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Migration.Configuration))
	for name := range c.Migration.Configuration {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve merges, from lowest to highest priority, the defaults, the
// migration section, the named configuration (if name is set) and the
// environment.
func (c *Config) Resolve(name string, environ map[string]string) (Settings, error) {
	settings := Defaults()
	settings.Merge(c.Migration.Settings)

	if name != "" {
		named, ok := c.Migration.Configuration[name]
		if !ok {
			available := "none"
			if names := c.Names(); len(names) > 0 {
				available = strings.Join(names, ", ")
			}
			return Settings{}, fmt.Errorf(
				"%w: \"%s\" (available: %s), create it at 'migration.configuration.%s' in %s",
				ErrUnknownConfiguration, name, available, name, c.path,
			)
		}
		settings.Merge(named)
	}

	fromEnv, err := ParseEnv(environ)
	if err != nil {
		return Settings{}, err
	}
	settings.Merge(fromEnv)

	return settings, nil
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		Path:   DefaultPath,
		Table:  driver.DefaultVersionTable,
		Driver: DefaultDriver,
	}
}

// ParseEnv reads the JUNBAN_* variables of environ.
func ParseEnv(environ map[string]string) (Settings, error) {
	if environ == nil {
		environ = map[string]string{}
	}

	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{
		Environment: environ,
		Prefix:      EnvPrefix,
	}); err != nil {
		return Settings{}, fmt.Errorf("failed parsing environment: %w", err)
	}
	return s, nil
}

// Merge overrides s with every value set in other.
func (s *Settings) Merge(other Settings) {
	if other.Path != "" {
		s.Path = other.Path
	}
	if other.Table != "" {
		s.Table = other.Table
	}
	if other.Driver != "" {
		s.Driver = strings.ToLower(other.Driver)
	}
	if other.DSN != "" {
		s.DSN = other.DSN
	}
	if len(other.Vars) > 0 {
		if s.Vars == nil {
			s.Vars = make(map[string]string, len(other.Vars))
		}
		maps.Copy(s.Vars, other.Vars)
	}
}
