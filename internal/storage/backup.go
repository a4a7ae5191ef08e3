package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
)

// maxAutoBackups is how many automatic backups survive pruning.
const maxAutoBackups = 5

// BackupManager creates and restores copies of the ledger database.
type BackupManager struct {
	db         *sql.DB
	dbPath     string
	backupsDir string
}

// BackupMetadata is written next to each backup file.
type BackupMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	SlotSizes     map[string]int `json:"slot_sizes"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// BackupInfo represents a backup for listing.
type BackupInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	ExpensesBytes int
	SchemaVersion int
	IsAuto        bool
}

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupExists    = errors.New("backup already exists")
	ErrInvalidBackupID = errors.New("invalid backup id: cannot contain path separators")
	ErrInMemoryBackup  = errors.New("in-memory databases cannot be backed up")
)

// NewBackupManager creates a backup manager storing copies under <db dir>/backups.
func NewBackupManager(db *sql.DB, dbPath string) (*BackupManager, error) {
	if dbPath == ":memory:" {
		return nil, ErrInMemoryBackup
	}

	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	backupsDir := filepath.Join(filepath.Dir(absPath), "backups")
	if err := os.MkdirAll(backupsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{
		db:         db,
		dbPath:     absPath,
		backupsDir: backupsDir,
	}, nil
}

func validBackupID(id string) bool {
	return id != "" && !strings.Contains(id, "/") && !strings.Contains(id, "\\") && !strings.Contains(id, "..")
}

// Create writes a new backup with the given tag and description.
func (bm *BackupManager) Create(ctx context.Context, tag, description string) (*BackupInfo, error) {
	return bm.create(ctx, tag, description, false)
}

func (bm *BackupManager) create(ctx context.Context, tag, description string, auto bool) (*BackupInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("backup-%s", time.Now().Format("2006-01-02-150405"))
	}
	if !validBackupID(tag) {
		return nil, ErrInvalidBackupID
	}

	backupPath := filepath.Join(bm.backupsDir, tag+".db")
	if _, err := os.Stat(backupPath); err == nil {
		return nil, ErrBackupExists
	}

	var schemaVersion int
	if err := bm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	slotSizes, err := bm.collectSlotSizes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect slot sizes: %w", err)
	}

	if err := bm.backupDatabase(ctx, backupPath); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	metadata := BackupMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		SlotSizes:     slotSizes,
		SchemaVersion: schemaVersion,
		IsAuto:        auto,
	}

	metadataPath := filepath.Join(bm.backupsDir, tag+".meta.json")
	if err := bm.saveMetadata(metadataPath, metadata); err != nil {
		if rmErr := os.Remove(backupPath); rmErr != nil {
			common.LogError(ctx, rmErr, "failed to remove backup file after metadata save failure",
				common.Fields{"path": backupPath})
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := bm.storeMetadataInDB(ctx, metadata); err != nil {
		// The backup is still valid without its database record.
		slog.Warn("failed to store backup metadata in database", "error", err)
	}

	info := metadata.info()
	return &info, nil
}

func (m BackupMetadata) info() BackupInfo {
	return BackupInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		ExpensesBytes: m.SlotSizes["expenses"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

// List returns all backups, newest first.
func (bm *BackupManager) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}

		metadata, err := bm.loadMetadata(filepath.Join(bm.backupsDir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, metadata.info())
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Restore replaces the live database with a backup. The storage's connection
// is closed as part of the restore and must be reopened by the caller.
func (bm *BackupManager) Restore(ctx context.Context, backupID string) error {
	if !validBackupID(backupID) {
		return ErrInvalidBackupID
	}

	backupPath := filepath.Join(bm.backupsDir, backupID+".db")
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	if err := verifyIntegrity(backupPath); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupCorrupted, err)
	}

	if err := bm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	safetyPath := bm.dbPath + ".restore-backup"
	if err := copyFile(bm.dbPath, safetyPath); err != nil {
		return fmt.Errorf("failed to copy current database aside: %w", err)
	}

	if err := copyFile(backupPath, bm.dbPath); err != nil {
		if restoreErr := copyFile(safetyPath, bm.dbPath); restoreErr != nil {
			common.LogError(ctx, restoreErr, "failed to put current database back after restore failure",
				common.Fields{"safety_copy": safetyPath})
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	// Stale WAL/SHM files belong to the replaced database.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(bm.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove stale sqlite side file", "file", bm.dbPath+suffix, "error", err)
		}
	}

	if err := os.Remove(safetyPath); err != nil {
		common.LogError(ctx, err, "failed to remove restore safety copy", common.Fields{"path": safetyPath})
	}

	common.LogInfo(ctx, "restored backup", common.Fields{"id": backupID})
	return nil
}

// Delete removes a backup.
func (bm *BackupManager) Delete(ctx context.Context, backupID string) error {
	if !validBackupID(backupID) {
		return ErrInvalidBackupID
	}

	backupPath := filepath.Join(bm.backupsDir, backupID+".db")
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to remove backup file: %w", err)
	}

	metadataPath := filepath.Join(bm.backupsDir, backupID+".meta.json")
	if err := os.Remove(metadataPath); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "path", metadataPath)
	}

	if _, err := bm.db.ExecContext(ctx, "DELETE FROM backup_metadata WHERE id = ?", backupID); err != nil {
		slog.Debug("failed to remove backup metadata from database", "error", err, "id", backupID)
	}

	return nil
}

// AutoBackup takes a backup before a destructive operation and prunes old automatic ones.
func (bm *BackupManager) AutoBackup(ctx context.Context, operation string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", operation, time.Now().Format("2006-01-02-150405.000000000"))
	info, err := bm.create(ctx, tag, fmt.Sprintf("Automatic backup before %s", operation), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-backup: %w", err)
	}

	if err := bm.pruneAutoBackups(ctx); err != nil {
		slog.Warn("failed to prune old auto-backups", "error", err)
	}

	return info, nil
}

func (bm *BackupManager) pruneAutoBackups(ctx context.Context) error {
	backups, err := bm.List(ctx)
	if err != nil {
		return err
	}

	autoCount := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		autoCount++
		if autoCount > maxAutoBackups {
			if err := bm.Delete(ctx, b.ID); err != nil {
				slog.Debug("failed to delete old auto-backup", "error", err, "backup", b.ID)
			}
		}
	}

	return nil
}

func (bm *BackupManager) collectSlotSizes(ctx context.Context) (map[string]int, error) {
	rows, err := bm.db.QueryContext(ctx, "SELECT name, length(payload) FROM slots")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sizes := make(map[string]int)
	for rows.Next() {
		var name string
		var size int
		if err := rows.Scan(&name, &size); err != nil {
			return nil, err
		}
		sizes[name] = size
	}
	return sizes, rows.Err()
}

func (bm *BackupManager) backupDatabase(ctx context.Context, destPath string) error {
	if _, err := bm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if strings.ContainsAny(destPath, `'";`) {
		return fmt.Errorf("invalid destination path: contains forbidden characters")
	}
	if !filepath.IsAbs(destPath) || strings.Contains(destPath, "..") {
		return fmt.Errorf("invalid destination path")
	}

	// #nosec G201 - destPath is validated above
	if _, err := bm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		slog.Debug("VACUUM INTO failed, falling back to file copy", "error", err)
		return copyFile(bm.dbPath, destPath)
	}
	return nil
}

func copyFile(src, dst string) error {
	if strings.Contains(src, "..") || strings.Contains(dst, "..") {
		return fmt.Errorf("invalid file paths")
	}

	tmpDst := dst + ".tmp"

	// #nosec G304 - paths are validated above
	source, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			slog.Error("failed to close source file", "error", closeErr)
		}
	}()

	// #nosec G304 - paths are validated above
	destination, err := os.Create(filepath.Clean(tmpDst))
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmpDst)
		return err
	}

	if err := destination.Close(); err != nil {
		_ = os.Remove(tmpDst)
		return err
	}

	return os.Rename(tmpDst, dst)
}

func (bm *BackupManager) saveMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (bm *BackupManager) loadMetadata(path string) (*BackupMetadata, error) {
	// #nosec G304 - path is built from the backups directory listing
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var metadata BackupMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func (bm *BackupManager) storeMetadataInDB(ctx context.Context, metadata BackupMetadata) error {
	slotSizesJSON, err := json.Marshal(metadata.SlotSizes)
	if err != nil {
		return err
	}

	_, err = bm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backup_metadata
		(id, created_at, description, file_size, slot_sizes, schema_version, is_auto)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		metadata.ID,
		metadata.CreatedAt,
		metadata.Description,
		metadata.FileSize,
		string(slotSizesJSON),
		metadata.SchemaVersion,
		metadata.IsAuto,
	)
	return err
}
