package pricing

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Loader loads a tier schedule from a named source.
type Loader interface {
	Load(ctx context.Context, path string) (Schedule, error)
}

// fileLoader implements Loader for YAML files on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based schedule loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "tier-loader").Logger(),
	}
}

// Load reads and validates a YAML tier schedule.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Schedule, error) {
	if err := ctx.Err(); err != nil {
		return Schedule{}, err
	}

	l.logger.Info().Str("file", filePath).Msg("loading tier schedule")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open tier schedule")
		return Schedule{}, fmt.Errorf("failed to open tier schedule %s: %w", filePath, err)
	}
	defer file.Close()

	schedule, err := Parse(file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse tier schedule")
		return Schedule{}, fmt.Errorf("tier schedule %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("steps", len(schedule.Steps)).
		Msg("tier schedule loaded successfully")

	return schedule, nil
}

// LoadOrDefault loads the schedule at path, or returns DefaultSchedule when path is empty.
func LoadOrDefault(ctx context.Context, loader Loader, path string) (Schedule, error) {
	if path == "" {
		return DefaultSchedule(), nil
	}
	return loader.Load(ctx, path)
}
