package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/imedwei/backupdbtool/internal/config"
)

const mysqldumpBinary = "mysqldump"

// MySQLDumper implements Dumper for MySQL databases using mysqldump.
type MySQLDumper struct {
	cfg     config.DatabaseConfig
	timeout time.Duration
	run     ToolRunner
	now     func() time.Time
	openDB  func(driverName, dsn string) (*sql.DB, error)
	logger  *slog.Logger
}

// NewMySQLDumper creates a new MySQL dumper.
func NewMySQLDumper(cfg config.DatabaseConfig, timeout time.Duration, logger *slog.Logger) *MySQLDumper {
	return &MySQLDumper{
		cfg:     cfg,
		timeout: timeout,
		run:     RunTool,
		now:     time.Now,
		openDB:  sql.Open,
		logger:  logger.With("component", "mysql-dumper"),
	}
}

// Engine implements Dumper.Engine.
func (m *MySQLDumper) Engine() string {
	return config.DBMySQL
}

// Backup implements Dumper.Backup.
func (m *MySQLDumper) Backup(ctx context.Context, databaseName, targetDir string) (string, error) {
	started := m.now()

	args := []string{
		"-h", m.cfg.Host,
		"-P", strconv.Itoa(m.cfg.Port),
		"-u", m.cfg.Username,
		"-p" + m.cfg.Password,
		databaseName,
	}

	m.logger.Info("Running mysqldump", "database", databaseName, "host", m.cfg.Host)

	out, err := m.run(ctx, ToolSpec{
		Name:    mysqldumpBinary,
		Args:    args,
		Timeout: m.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("mysqldump failed for database %s: %w", databaseName, err)
	}

	return writeDump(targetDir, databaseName, started, out)
}

// Inspect implements Inspector.
func (m *MySQLDumper) Inspect(ctx context.Context, databaseName string) (*DatabaseInfo, error) {
	db, err := m.openDB("mysql", m.dsn(databaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	info, err := inspectMySQL(ctx, db, databaseName)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Detected MySQL version", "version", info.Version)
	return info, nil
}

func (m *MySQLDumper) dsn(databaseName string) string {
	cfg := mysql.NewConfig()
	cfg.User = m.cfg.Username
	cfg.Passwd = m.cfg.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	cfg.DBName = databaseName
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

func inspectMySQL(ctx context.Context, db *sql.DB, databaseName string) (*DatabaseInfo, error) {
	info := DatabaseInfo{Name: databaseName}

	sizeQuery := `SELECT COALESCE(SUM(data_length + index_length), 0)
		FROM information_schema.tables WHERE table_schema = ?`
	if err := db.QueryRowContext(ctx, sizeQuery, databaseName).Scan(&info.Size); err != nil {
		return nil, fmt.Errorf("failed to query database size: %w", err)
	}

	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&info.Version); err != nil {
		return nil, fmt.Errorf("failed to query server version: %w", err)
	}

	return &info, nil
}
