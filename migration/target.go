package migration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type TargetKind uint

const (
	LatestTarget TargetKind = iota
	RelativeTarget
	AbsoluteTarget
)

// Target is what a run migrates to: the end of the catalog, a number of
// steps away from the current version, or a point in time.
type Target struct {
	Kind  TargetKind
	Steps int
	Date  Version
}

func Latest() Target {
	return Target{Kind: LatestTarget}
}

func Relative(n int) Target {
	return Target{Kind: RelativeTarget, Steps: n}
}

func Absolute(t time.Time) Target {
	return Target{Kind: AbsoluteTarget, Date: VersionFromTime(t)}
}

func (t Target) String() string {
	switch t.Kind {
	case RelativeTarget:
		return fmt.Sprintf("%+d", t.Steps)
	case AbsoluteTarget:
		return t.Date.String()
	default:
		return "latest"
	}
}

var (
	stepsRE       = regexp.MustCompile(`^[0-9]{1,3}$`)
	signedStepsRE = regexp.MustCompile(`^[+-][0-9]{1,3}$`)
)

// ParseTarget reads a target the way the command line spells it. A bare
// number of at most three digits is a step count, negated when backward is
// set; anything else must be a date.
func ParseTarget(s string, backward bool) (Target, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return Latest(), nil

	case stepsRE.MatchString(s):
		n, _ := strconv.Atoi(s)
		if backward {
			n = -n
		}
		return Relative(n), nil

	case signedStepsRE.MatchString(s):
		n, _ := strconv.Atoi(s)
		return Relative(n), nil
	}

	v, err := ParseVersion(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: \"%s\" is neither a step count nor a date", ErrInvalidTarget, s)
	}

	return Target{Kind: AbsoluteTarget, Date: v}, nil
}
