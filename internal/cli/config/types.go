// Package config provides configuration management for the zeus CLI.
//
// Values are layered from defaults, a zeus.yaml file, ZEUS_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"path/filepath"
	"time"

	"github.com/leapstack-labs/zeus/internal/results"
)

// S3Config holds the credentials and endpoint used by `export --s3`.
type S3Config struct {
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	PathStyle       bool   `koanf:"path_style"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// Sink returns the S3 sink configuration for the given s3:// destination.
func (c S3Config) Sink(bucket, prefix string) results.S3Config {
	return results.S3Config{
		Bucket:          bucket,
		Prefix:          prefix,
		Region:          c.Region,
		EndpointURL:     c.Endpoint,
		ForcePathStyle:  c.PathStyle,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
	}
}

// Config holds all CLI configuration options.
type Config struct {
	APIURL       string        `koanf:"api_url"`
	StatePath    string        `koanf:"state_path"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	PageSize     int           `koanf:"page_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
	RunsRefresh  time.Duration `koanf:"runs_refresh"`
	CatalogTTL   time.Duration `koanf:"catalog_ttl"`
	HTTPTimeout  time.Duration `koanf:"http_timeout"`
	ExportDir    string        `koanf:"export_dir"`
	Theme        string        `koanf:"theme"`
	S3           S3Config      `koanf:"s3"`

	// ProjectRoot is the directory holding the config file, or the working
	// directory when none was found. Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
}

// LogPath is where the workbench writes its log, next to the state file.
func (c *Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.StatePath), "zeus.log")
}

// Default configuration values.
const (
	DefaultAPIURL       = "http://localhost:8080/api"
	DefaultStateFile    = ".zeus/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPageSize     = 50
	DefaultPollInterval = 2 * time.Second
	DefaultRunsRefresh  = 5 * time.Second
	DefaultCatalogTTL   = 5 * time.Minute
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultExportDir    = "."
	DefaultTheme        = "auto"
)
