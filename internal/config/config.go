// Package config handles application configuration loaded from a TOML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imedwei/backupdbtool/internal/utils"
)

// Database engines.
const (
	DBPostgres = "postgresql"
	DBMySQL    = "mysql"
)

// Storage providers.
const (
	ProviderTencentCOS = "tencent_cos"
	ProviderAliyunOSS  = "aliyun_oss"
	ProviderS3         = "s3"
	ProviderLocal      = "local"
	ProviderGCS        = "gcs"
	ProviderAzure      = "azure"
)

// Local cleanup policies applied by the delete workflow.
const (
	// CleanupAll removes every local archive regardless of age.
	CleanupAll = "all"
	// CleanupNone leaves local archives in place.
	CleanupNone = "none"
)

const envPrefix = "BACKUPDBTOOL"

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Postgres   DatabaseConfig   `mapstructure:"postgresql"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	S3         S3Config         `mapstructure:"s3"`
	TencentCOS TencentCOSConfig `mapstructure:"tencent_cos"`
	AliyunOSS  AliyunOSSConfig  `mapstructure:"aliyun_oss"`
	GCS        GCSConfig        `mapstructure:"gcs"`
	Azure      AzureConfig      `mapstructure:"azure"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig holds workflow settings shared by every provider.
type AppConfig struct {
	BackupDir        string `mapstructure:"backup_dir"`
	DBType           string `mapstructure:"db_type"`
	CosProvider      string `mapstructure:"cos_provider"`
	CosPath          string `mapstructure:"cos_path"`
	CompressPassword string `mapstructure:"compress_password"`

	// LocalCleanup is applied to the backup directory before remote deletion.
	LocalCleanup string `mapstructure:"local_cleanup"`

	// UploadConcurrency bounds the bulk upload worker pool.
	UploadConcurrency int `mapstructure:"upload_concurrency"`

	// ToolTimeout bounds each dump/archive subprocess. Zero disables it.
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`

	// StorageRetryAttempts of 1 means single attempt.
	StorageRetryAttempts int `mapstructure:"storage_retry_attempts"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DatabaseConfig holds connection parameters for a database engine.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"` // postgresql only
}

// S3Config holds settings for S3-compatible storage.
type S3Config struct {
	SecretID      string `mapstructure:"secret_id"`
	SecretKey     string `mapstructure:"secret_key"`
	EndPoint      string `mapstructure:"end_point"` // Optional custom endpoint
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	PathStyle     bool   `mapstructure:"path_style"`
	LegacyListing bool   `mapstructure:"legacy_listing"`
}

// TencentCOSConfig holds Tencent Cloud COS settings.
type TencentCOSConfig struct {
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
}

// AliyunOSSConfig holds Aliyun OSS settings.
type AliyunOSSConfig struct {
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	EndPoint  string `mapstructure:"end_point"`
	Bucket    string `mapstructure:"bucket"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket             string `mapstructure:"bucket"`
	ProjectID          string `mapstructure:"project_id"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// AzureConfig holds Azure Blob Storage settings.
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	Endpoint    string `mapstructure:"endpoint"` // Optional, defaults to the public cloud
}

// MetricsConfig controls the optional metrics/health HTTP server.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// DefaultBackupDir returns the backup directory used when none is configured.
func DefaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".dbbackup")
	}
	return filepath.Join(home, ".dbbackup")
}

// Load reads configuration from the given file. Environment variables
// prefixed with BACKUPDBTOOL_ override file values (e.g. BACKUPDBTOOL_APP_COS_PATH).
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindEnv registers every leaf key of t so Unmarshal sees environment values
// for keys the config file leaves out. AutomaticEnv alone only covers keys
// viper already knows about.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			if err := bindEnv(v, field.Type, key); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.backup_dir", DefaultBackupDir())
	v.SetDefault("app.db_type", DBPostgres)
	v.SetDefault("app.cos_provider", ProviderTencentCOS)
	v.SetDefault("app.cos_path", "db/")
	v.SetDefault("app.compress_password", "dbbackuppassword")
	v.SetDefault("app.local_cleanup", CleanupAll)
	v.SetDefault("app.upload_concurrency", 4)
	v.SetDefault("app.tool_timeout", 2*time.Hour)
	v.SetDefault("app.storage_retry_attempts", 1)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("postgresql.host", "localhost")
	v.SetDefault("postgresql.port", 5432)
	v.SetDefault("postgresql.sslmode", "disable")
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)

	v.SetDefault("metrics.port", 0)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.App.DBType {
	case DBPostgres:
		if err := validateDatabase(DBPostgres, c.Postgres); err != nil {
			return err
		}
	case DBMySQL:
		if err := validateDatabase(DBMySQL, c.MySQL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid app.db_type: %q (must be 'postgresql' or 'mysql')", c.App.DBType)
	}

	switch c.App.CosProvider {
	case ProviderTencentCOS:
		if err := c.validateTencentCOS(); err != nil {
			return err
		}
	case ProviderAliyunOSS:
		if err := c.validateAliyunOSS(); err != nil {
			return err
		}
	case ProviderS3:
		if err := c.validateS3(); err != nil {
			return err
		}
	case ProviderGCS:
		if err := c.validateGCS(); err != nil {
			return err
		}
	case ProviderAzure:
		if err := c.validateAzure(); err != nil {
			return err
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("invalid app.cos_provider: %q", c.App.CosProvider)
	}

	if c.App.CompressPassword == "" {
		return fmt.Errorf("app.compress_password is required")
	}

	switch c.App.LocalCleanup {
	case CleanupAll, CleanupNone:
	default:
		return fmt.Errorf("invalid app.local_cleanup: %q (must be 'all' or 'none')", c.App.LocalCleanup)
	}

	if c.App.UploadConcurrency < 1 {
		return fmt.Errorf("app.upload_concurrency must be at least 1")
	}

	if c.App.ToolTimeout < 0 {
		return fmt.Errorf("app.tool_timeout must be non-negative")
	}

	if c.App.StorageRetryAttempts < 1 {
		return fmt.Errorf("app.storage_retry_attempts must be at least 1")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics.port: %d", c.Metrics.Port)
	}

	return nil
}

func validateDatabase(engine string, db DatabaseConfig) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", engine)
	}
	if db.Port <= 0 || db.Port > 65535 {
		return fmt.Errorf("invalid %s.port: %d", engine, db.Port)
	}
	if db.Username == "" {
		return fmt.Errorf("%s.username is required", engine)
	}
	return nil
}

func (c *Config) validateTencentCOS() error {
	if c.TencentCOS.SecretID == "" || c.TencentCOS.SecretKey == "" {
		return fmt.Errorf("tencent_cos.secret_id and tencent_cos.secret_key are required")
	}
	if c.TencentCOS.Region == "" {
		return fmt.Errorf("tencent_cos.region is required")
	}
	if c.TencentCOS.Bucket == "" {
		return fmt.Errorf("tencent_cos.bucket is required")
	}
	return nil
}

func (c *Config) validateAliyunOSS() error {
	if c.AliyunOSS.SecretID == "" || c.AliyunOSS.SecretKey == "" {
		return fmt.Errorf("aliyun_oss.secret_id and aliyun_oss.secret_key are required")
	}
	if c.AliyunOSS.EndPoint == "" {
		return fmt.Errorf("aliyun_oss.end_point is required")
	}
	if c.AliyunOSS.Bucket == "" {
		return fmt.Errorf("aliyun_oss.bucket is required")
	}
	return nil
}

func (c *Config) validateS3() error {
	if c.S3.SecretID == "" {
		return fmt.Errorf("s3.secret_id is required for S3 storage")
	}
	if c.S3.SecretKey == "" {
		return fmt.Errorf("s3.secret_key is required for S3 storage")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required for S3 storage")
	}
	if c.S3.Region == "" && c.S3.EndPoint == "" {
		return fmt.Errorf("s3.region is required for S3 storage (unless s3.end_point is set)")
	}
	return nil
}

func (c *Config) validateGCS() error {
	if c.GCS.Bucket == "" {
		return fmt.Errorf("gcs.bucket is required for GCS storage")
	}
	return nil
}

func (c *Config) validateAzure() error {
	if c.Azure.AccountName == "" || c.Azure.AccountKey == "" {
		return fmt.Errorf("azure.account_name and azure.account_key are required")
	}
	if c.Azure.Container == "" {
		return fmt.Errorf("azure.container is required")
	}
	return nil
}

// BackupDir returns the resolved backup directory. Unresolvable paths fall
// back to the default directory.
func (c *Config) BackupDir() string {
	dir, err := utils.ResolvePath(c.App.BackupDir)
	if err != nil {
		return DefaultBackupDir()
	}
	return dir
}

// Database returns the connection settings of the selected engine.
func (c *Config) Database() DatabaseConfig {
	if c.App.DBType == DBMySQL {
		return c.MySQL
	}
	return c.Postgres
}
