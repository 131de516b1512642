package repositories

import (
	"context"
	"fmt"
	"time"

	"skillswap/pkg/config"
	"skillswap/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Now

// Store groups the repositories of one backend.
type Store struct {
	Users    UserRepository
	Swaps    SwapRepository
	Messages MessageRepository

	db *gorm.DB
}

// NewMemoryStore returns a store that lives only as long as the process.
func NewMemoryStore() *Store {
	return &Store{
		Users:    NewMemoryUserRepository(),
		Swaps:    NewMemorySwapRepository(),
		Messages: NewMemoryMessageRepository(),
	}
}

// NewFileStore returns a store backed by JSON files under dir.
func NewFileStore(dir string) *Store {
	return &Store{
		Users:    NewFileUserRepository(dir),
		Swaps:    NewFileSwapRepository(dir),
		Messages: NewFileMessageRepository(dir),
	}
}

// NewGORMStore returns a store on an open database.
func NewGORMStore(db *gorm.DB) *Store {
	return &Store{
		Users:    NewGORMUserRepository(db),
		Swaps:    NewGORMSwapRepository(db),
		Messages: NewGORMMessageRepository(db),
		db:       db,
	}
}

// Open builds the store selected by cfg.StoreDriver. SQL backends are migrated
// before use.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverFile:
		return NewFileStore(cfg.DataDir), nil
	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.Open(ctx, cfg.StoreDriver, cfg.DatabaseDSN, log, database.LogLevelFor(cfg.AppEnv))
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return NewGORMStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// DB returns the underlying database, or nil for the memory and file stores.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
