package store

import (
	"context"
	"fmt"

	"github.com/oshokin/proximity-alarm/internal/config"
)

// Open creates the repository selected by settings.
// settings must have passed config.Validate.
//
//nolint:ireturn // Callers depend on the driver-agnostic interface.
func Open(ctx context.Context, settings *config.Storage) (Repository, error) {
	var (
		repo Repository
		err  error
	)

	switch settings.Driver {
	case config.DriverMemory:
		return NewMemoryRepository(settings.Retention), nil
	case config.DriverFile:
		repo, err = NewFileRepository(settings.Path, settings.Retention)
	case config.DriverPostgres:
		repo, err = NewPostgresRepository(ctx, settings.DSN)
	case config.DriverClickHouse:
		repo, err = NewClickHouseRepository(ctx, settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", settings.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", settings.Driver, err)
	}

	return repo, nil
}
