package migration

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Direction rune

const (
	Down Direction = 'd'
	Up   Direction = 'u'
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ---

const (
	VersionBits   = 64
	VersionLength = 14

	compactLayout = "20060102150405"
	storedLayout  = "2006-01-02T15:04:05"
)

// Version is a migration timestamp in the YYYYMMDDHHMMSS form. Integer order
// is chronological order.
type Version uint64

// Epoch is the version of a database no migration was ever applied to.
const Epoch Version = 10101000000 // 0001-01-01T00:00:00

var versionLayouts = []string{ //nolint:gochecknoglobals
	storedLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC3339,
}

// VersionFromTime drops the time zone and everything below a second.
func VersionFromTime(t time.Time) Version {
	v, _ := strconv.ParseUint(t.Format(compactLayout), 10, VersionBits)
	return Version(v)
}

// ParseVersion accepts the compact form as well as the stored form and a few
// date layouts.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)

	if len(s) == VersionLength && isDigits(s) {
		t, err := time.Parse(compactLayout, s)
		if err != nil {
			return 0, fmt.Errorf("%w: \"%s\"", ErrInvalidVersion, s)
		}
		return VersionFromTime(t), nil
	}

	for _, layout := range versionLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return VersionFromTime(t), nil
		}
	}

	return 0, fmt.Errorf("%w: \"%s\"", ErrInvalidVersion, s)
}

func (v Version) Time() time.Time {
	t, err := time.Parse(compactLayout, fmt.Sprintf("%014d", uint64(v)))
	if err != nil {
		return time.Time{}
	}
	return t
}

// String returns the form the version is stored in.
func (v Version) String() string {
	return v.Time().Format(storedLayout)
}

func (v Version) Compact() string {
	return fmt.Sprintf("%014d", uint64(v))
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// ---

type Kind uint

const (
	Declarative Kind = iota
	Procedural
)

func (k Kind) String() string {
	if k == Procedural {
		return "procedural"
	}
	return "declarative"
}

type Migration struct {
	Version Version
	Name    string
}

// Descriptor is a discovered migration file. Previous is the version of the
// migration right before it in the catalog, or Epoch for the first one.
type Descriptor struct {
	Migration
	Previous Version
	Kind     Kind
	Path     string
	FileName string
	Ext      string
}

// ---

// Tx is the handle migration steps run their statements through. Every call
// returns only after the database has responded.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

type StepFunc func(ctx context.Context, tx Tx) error

// ---

type Status uint

const (
	Pending Status = iota
	Applied
	Missing
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case Missing:
		return "missing"
	default:
		return "pending"
	}
}

type State struct {
	Descriptor
	Status  Status
	Current bool
}
