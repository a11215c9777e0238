package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "offerwatch"

	// DefaultBackfillBatchSize is the number of rows a backfill reads and
	// rewrites per batch.
	DefaultBackfillBatchSize = 500

	// DefaultBusyTimeout is how long a statement waits for a lock held by
	// another process, such as a scraper started by cron, before failing.
	DefaultBusyTimeout = 5 * time.Second
)

// Config holds all configuration options for offerwatch.
// It is populated from defaults, the configuration file and CLI flags, and
// passed down explicitly rather than kept in global state.
type Config struct {
	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/offerwatch on Linux).
	DBDir string

	// BackfillBatchSize is the number of rows per backfill batch.
	BackfillBatchSize int

	// BusyTimeout is the SQLite busy timeout set on every connection.
	BusyTimeout time.Duration

	// EnableWAL switches the database to write-ahead logging.
	EnableWAL bool

	// VerifyIntegrity runs a foreign key check before migrating a database
	// that is already tracked.
	VerifyIntegrity bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only informational messages and above are logged.
	Verbose bool

	// LogJSON writes logs as JSON lines instead of text.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// JSONReport selects JSON output for the status command.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output for the status command.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		DBDir:             XDGDataDir(),
		BackfillBatchSize: DefaultBackfillBatchSize,
		BusyTimeout:       DefaultBusyTimeout,
		EnableWAL:         true,
		VerifyIntegrity:   true,
	}
}

// XDGDataDir returns the XDG data directory for offerwatch.
// On Linux: ~/.local/share/offerwatch
// On macOS: ~/Library/Application Support/offerwatch
// On Windows: %LOCALAPPDATA%\offerwatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for offerwatch.
// On Linux: ~/.config/offerwatch
// On macOS: ~/Library/Application Support/offerwatch
// On Windows: %APPDATA%\offerwatch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.DBDir == "" {
		return ErrNoDBDir
	}

	if c.BackfillBatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// Zero disables waiting, which is allowed.
	if c.BusyTimeout < 0 {
		return ErrInvalidBusyTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ApplyFile overrides the configuration with the values set in f.
// Unset values in f keep the current configuration.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	if f.Database.Dir != "" {
		c.DBDir = expandHome(f.Database.Dir)
	}
	if f.Database.BusyTimeout != nil {
		c.BusyTimeout = *f.Database.BusyTimeout
	}
	if f.Database.WAL != nil {
		c.EnableWAL = *f.Database.WAL
	}
	if f.Migrations.BatchSize != 0 {
		c.BackfillBatchSize = f.Migrations.BatchSize
	}
	if f.Migrations.VerifyIntegrity != nil {
		c.VerifyIntegrity = *f.Migrations.VerifyIntegrity
	}
}
