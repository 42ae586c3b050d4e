package errors

import (
	"errors"
	"log/slog"

	"github.com/root-talis/junban/migration"
)

// Log logs an error using logger, extracting metadata from migration errors.
func Log(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var applyErr *migration.ApplyError
	if errors.As(err, &applyErr) {
		logger.Error("migration failed",
			"migration", applyErr.Migration.Name,
			"version", applyErr.Migration.Version.String(),
			"direction", applyErr.Direction.String(),
			"file", applyErr.Migration.FileName,
			"cause", applyErr.Err,
		)
		return
	}

	var discoveryErr *migration.DiscoveryError
	if errors.As(err, &discoveryErr) {
		logger.Error("failed to discover migrations",
			"dir", discoveryErr.Dir,
			"cause", discoveryErr.Err,
		)
		return
	}

	logger.Error(err.Error())
}
