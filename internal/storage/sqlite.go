package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/purse/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and :memory: needs exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewBackupManager creates a backup manager for this storage instance.
func (s *SQLiteStorage) NewBackupManager() (*BackupManager, error) {
	return NewBackupManager(s.db, s.dbPath)
}

// ReadSlot returns the payload stored under slot.
func (s *SQLiteStorage) ReadSlot(ctx context.Context, slot service.Slot) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSlot(slot); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE name = ?`, string(slot)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}

	slog.Debug("read slot", "slot", slot, "bytes", len(payload))
	return payload, nil
}

// WriteSlots stores every payload inside one transaction so a snapshot is never half written.
func (s *SQLiteStorage) WriteSlots(ctx context.Context, payloads map[service.Slot][]byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePayloads(payloads); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, slot := range service.AllSlots {
		payload, ok := payloads[slot]
		if !ok {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO slots (name, payload, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			string(slot), payload, now)
		if err != nil {
			return fmt.Errorf("failed to write slot %s: %w", slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slots: %w", err)
	}

	slog.Debug("wrote slots", "count", len(payloads))
	return nil
}
