package core

import (
	"fmt"
	"os"

	"carveout/internal/infra/persistence/memory"
	"carveout/internal/infra/persistence/postgres"
	"carveout/internal/infra/persistence/sqlite"
	"carveout/pkg/domain"
)

// StorageDriver identifies a concrete document storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenDocumentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	CARVEOUT_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CARVEOUT_SQLITE_PATH: path to sqlite file (default ./carveout.db)
//	CARVEOUT_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenDocumentStore() (domain.DocumentStore, error) {
	driver := os.Getenv("CARVEOUT_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	return OpenDocumentStoreWith(StorageDriver(driver), os.Getenv("CARVEOUT_SQLITE_PATH"), os.Getenv("CARVEOUT_POSTGRES_DSN"))
}

// OpenDocumentStoreWith opens driver with explicit settings. Empty settings
// fall back to each backend's default.
func OpenDocumentStoreWith(driver StorageDriver, sqlitePath, postgresDSN string) (domain.DocumentStore, error) {
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		s, err := sqlite.NewStore(sqlitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(postgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
