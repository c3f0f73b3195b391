package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os/exec"
	"strconv"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/imedwei/backupdbtool/internal/config"
)

const pgDumpBinary = "pg_dump"

// PostgresDumper implements Dumper for PostgreSQL databases using pg_dump.
type PostgresDumper struct {
	cfg      config.DatabaseConfig
	timeout  time.Duration
	pgDump   string
	run      ToolRunner
	now      func() time.Time
	openDB   func(driverName, dsn string) (*sql.DB, error)
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewPostgresDumper creates a new PostgreSQL dumper.
func NewPostgresDumper(cfg config.DatabaseConfig, timeout time.Duration, logger *slog.Logger) *PostgresDumper {
	return &PostgresDumper{
		cfg:      cfg,
		timeout:  timeout,
		pgDump:   pgDumpBinary,
		run:      RunTool,
		now:      time.Now,
		openDB:   sql.Open,
		lookPath: exec.LookPath,
		logger:   logger.With("component", "postgres-dumper"),
	}
}

// Engine implements Dumper.Engine.
func (p *PostgresDumper) Engine() string {
	return config.DBPostgres
}

// Backup implements Dumper.Backup.
func (p *PostgresDumper) Backup(ctx context.Context, databaseName, targetDir string) (string, error) {
	started := p.now()

	args := []string{
		"-h", p.cfg.Host,
		"-p", strconv.Itoa(p.cfg.Port),
		"-U", p.cfg.Username,
		"-d", databaseName,
	}

	p.logger.Info("Running pg_dump", "database", databaseName, "binary", p.pgDump, "host", p.cfg.Host)

	out, err := p.run(ctx, ToolSpec{
		Name:    p.pgDump,
		Args:    args,
		Env:     []string{"PGPASSWORD=" + p.cfg.Password},
		Timeout: p.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("pg_dump failed for database %s: %w", databaseName, err)
	}

	return writeDump(targetDir, databaseName, started, out)
}

// Inspect implements Inspector. A detected server version also selects a
// matching versioned pg_dump binary when one is installed.
func (p *PostgresDumper) Inspect(ctx context.Context, databaseName string) (*DatabaseInfo, error) {
	db, err := p.openDB("postgres", p.dsn(databaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	info, err := inspectPostgres(ctx, db)
	if err != nil {
		return nil, err
	}

	if version, err := ParsePGVersion(info.Version); err == nil {
		p.pgDump = FindBestPGDump(version.Major, p.lookPath)
		p.logger.Info("Detected PostgreSQL version",
			"version", version.Full,
			"major", version.Major,
			"binary", p.pgDump)
	} else {
		p.logger.Warn("Could not parse PostgreSQL version, using default pg_dump", "error", err)
	}

	return info, nil
}

func (p *PostgresDumper) dsn(databaseName string) string {
	q := url.Values{}
	if p.cfg.SSLMode != "" {
		q.Set("sslmode", p.cfg.SSLMode)
	}
	q.Set("connect_timeout", "10")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.cfg.Username, p.cfg.Password),
		Host:     net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port)),
		Path:     "/" + databaseName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func inspectPostgres(ctx context.Context, db *sql.DB) (*DatabaseInfo, error) {
	query := `
		SELECT
			current_database() as name,
			pg_database_size(current_database()) as size,
			version() as version
	`

	var info DatabaseInfo
	if err := db.QueryRowContext(ctx, query).Scan(&info.Name, &info.Size, &info.Version); err != nil {
		return nil, fmt.Errorf("failed to query database info: %w", err)
	}
	return &info, nil
}
