package junban

import (
	"github.com/root-talis/junban/migration"
)

// Plan lists the migrations a run applies, in the order it applies them.
// CurrentIndex is the catalog position of the current version, -1 when the
// current version is not in the catalog.
type Plan struct {
	Migrations   []migration.Descriptor
	Direction    migration.Direction
	CurrentIndex int
}

func (p *Plan) Empty() bool {
	return len(p.Migrations) == 0
}

// Resolve computes which migrations of catalog move a database at version
// current to target. The catalog must be sorted by version.
//
// Absolute targets land on the last migration at or before the target date
// in both directions. From T1, a date between T1 and T2 therefore resolves to
// nothing rather than to T2.
func Resolve(catalog []migration.Descriptor, current migration.Version, target migration.Target) Plan {
	currentIndex := -1
	for i := range catalog {
		if catalog[i].Version == current {
			currentIndex = i
			break
		}
	}

	effective := current
	if currentIndex < 0 {
		effective = migration.Epoch
	}

	lastIndex := len(catalog) - 1

	var start, end int
	switch target.Kind {
	case migration.RelativeTarget:
		start, end = currentIndex, currentIndex+target.Steps

	case migration.AbsoluteTarget:
		if target.Date == effective {
			start, end = currentIndex, currentIndex
		} else {
			start, end = currentIndex, lastAtOrBefore(catalog, target.Date)
		}

	default:
		start, end = currentIndex, lastIndex
	}

	plan := Plan{CurrentIndex: currentIndex}

	if start < end {
		plan.Direction = migration.Up

		start = max(start, 0)
		end = min(end, lastIndex)
		if currentIndex > -1 {
			start++
		}

		for i := start; i <= end; i++ {
			plan.Migrations = append(plan.Migrations, catalog[i])
		}

		return plan
	}

	plan.Direction = migration.Down

	end = max(end, -1)
	start = min(start, lastIndex)
	if currentIndex < 0 {
		start = end
	}

	for i := start; i > end; i-- {
		plan.Migrations = append(plan.Migrations, catalog[i])
	}

	return plan
}

func lastAtOrBefore(catalog []migration.Descriptor, date migration.Version) int {
	index := -1
	for i := range catalog {
		if catalog[i].Version > date {
			break
		}
		index = i
	}
	return index
}
