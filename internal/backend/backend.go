// Package backend selects and constructs the storage implementation from
// configuration.
package backend

import (
	"fmt"
	"log/slog"

	"budgetbee/internal/config"
	"budgetbee/internal/storage"
	"budgetbee/internal/storage/memory"
	"budgetbee/internal/storage/sqlite"
)

type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Memory, SQLite:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown data backend %q", s)
}

// New builds the store named by cfg.DataBackend.
func New(cfg *config.Config) (storage.Store, error) {
	t, err := ParseType(cfg.DataBackend)
	if err != nil {
		return nil, err
	}
	switch t {
	case Memory:
		slog.Info("Using in-memory store; data will not survive restart")
		return memory.New(), nil
	case SQLite:
		return sqlite.NewRepository(cfg.SQLiteDBPath)
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}
