// Package backend opens the ledger store selected by DATA_BACKEND.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/config"
	"finanzas/internal/ledger"
	"finanzas/internal/ledger/memory"
	"finanzas/internal/ledger/mongo"
	"finanzas/internal/storage"
)

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	_, ok := openers[bt]
	return ok
}

// Config carries the settings of every backend; only those of Type are read.
type Config struct {
	Type BackendType

	SQLiteDBPath string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	// DataDirectory holds the memory backend's seed files. Defaults to "data".
	DataDirectory string
}

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	cfg := Config{
		Type:              BackendType(c.DataBackend),
		SQLiteDBPath:      c.SQLiteDBPath,
		MongoURI:          c.MongoURI,
		MongoDatabase:     c.MongoDBName,
		MongoTransactions: c.MongoTransactions,
		DataDirectory:     c.DataDirectory,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("backend: unknown DATA_BACKEND %q", c.DataBackend)
	}
	return cfg, nil
}

// Validate reports the first setting Type needs but lacks.
func (c Config) Validate() error {
	var missing string
	switch c.Type {
	case MemoryBackend:
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			missing = "SQLite database path"
		}
	case MongoBackend:
		switch {
		case c.MongoURI == "":
			missing = "MongoDB URI"
		case c.MongoDatabase == "":
			missing = "MongoDB database name"
		}
	default:
		return fmt.Errorf("backend: unknown type %q", c.Type)
	}
	if missing != "" {
		return fmt.Errorf("backend: %s is required for %s", missing, c.Type)
	}
	return nil
}

// BackendResult is an opened store plus whatever releases it.
type BackendResult struct {
	Store   ledger.Store
	Cleanup func() error
}

// Ping asks the store's database whether it is reachable. Stores without one
// are always ready.
func (r *BackendResult) Ping(ctx context.Context) error {
	p, ok := r.Store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

type opener func(ctx context.Context, cfg Config, logger *slog.Logger) (*BackendResult, error)

var openers = map[BackendType]opener{
	MemoryBackend: openMemory,
	SQLiteBackend: openSQLite,
	MongoBackend:  openMongo,
}

// Factory opens stores. It exists so commands log through their own logger.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res, err := openers[cfg.Type](ctx, cfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", cfg.Type, err)
	}
	return res, nil
}

func openMemory(_ context.Context, cfg Config, logger *slog.Logger) (*BackendResult, error) {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "data"
	}
	store := memory.NewFromFiles(dir)
	logger.Info("Ledger store ready", "backend", MemoryBackend, "data_directory", dir)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func openSQLite(_ context.Context, cfg Config, logger *slog.Logger) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Ledger store ready", "backend", SQLiteBackend, "db_path", cfg.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func openMongo(ctx context.Context, cfg Config, logger *slog.Logger) (*BackendResult, error) {
	store, err := mongo.Open(ctx, mongo.Config{
		URI:          cfg.MongoURI,
		Database:     cfg.MongoDatabase,
		Transactions: cfg.MongoTransactions,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Ledger store ready", "backend", MongoBackend,
		"database", cfg.MongoDatabase, "transactions", cfg.MongoTransactions)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}
