package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/imedwei/backupdbtool/internal/config"
	"github.com/imedwei/backupdbtool/internal/utils"
)

// NewDumper creates the dumper selected by app.db_type.
func NewDumper(cfg *config.Config, logger *slog.Logger) (Dumper, error) {
	db := cfg.Database()
	switch cfg.App.DBType {
	case config.DBPostgres:
		return NewPostgresDumper(db, cfg.App.ToolTimeout, logger), nil
	case config.DBMySQL:
		return NewMySQLDumper(db, cfg.App.ToolTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.App.DBType)
	}
}

// writeDump stores a dump payload under its timestamped name in targetDir.
func writeDump(targetDir, databaseName string, started time.Time, payload []byte) (string, error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(targetDir, utils.DumpFilename(databaseName, started))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create dump file: %w", err)
	}

	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write dump file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to sync dump file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close dump file: %w", err)
	}

	return path, nil
}
