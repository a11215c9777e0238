package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/offerwatch/internal/migration"
	"github.com/nao1215/offerwatch/internal/migrations"
)

// FileName is the database file name inside the database directory.
const FileName = "offerwatch.db"

// Options configures how the database is opened and migrated.
type Options struct {
	// CreateIfNotExists creates the directory and database file if they don't
	// exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// BusyTimeout is how long a statement waits for a lock held by another
	// process.
	BusyTimeout time.Duration

	// BatchSize is the number of rows a backfill reads per batch.
	BatchSize int

	// VerifyIntegrity runs a foreign key check before migrating an already
	// tracked database.
	VerifyIntegrity bool

	// Logger receives migration progress. Nil means slog.Default().
	Logger *slog.Logger

	// Clock is the time source for stored timestamps. Nil means time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeout:       5 * time.Second,
		BatchSize:         migration.DefaultBatchSize,
		VerifyIntegrity:   true,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) clock() func() time.Time {
	if o.Clock != nil {
		return o.Clock
	}
	return time.Now
}

// Path returns the database file path inside dbDir.
func Path(dbDir string) string {
	return filepath.Join(dbDir, FileName)
}

// OpenSQL opens the database file without migrating it. Foreign key
// enforcement and the busy timeout are set on every connection.
//
// Most callers want Open. OpenSQL serves read-only inspection and manual
// maintenance such as rolling back a migration.
func OpenSQL(dbDir string, opts Options) (*sql.DB, error) {
	dbPath := Path(dbDir)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite applies _pragma parameters to each new connection.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := fmt.Sprintf("%s?mode=%s&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		dbPath, mode, opts.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return db, nil
}

// NewRunner returns a migration runner over the shipped registry configured
// from opts.
func NewRunner(db *sql.DB, opts Options) *migration.Runner {
	return migration.NewRunner(db, migrations.Registry,
		migration.WithLogger(opts.logger()),
		migration.WithClock(opts.clock()),
		migration.WithBatchSize(opts.BatchSize),
		migration.WithIntegrityCheck(opts.VerifyIntegrity),
	)
}

// Open opens the database in dbDir and applies pending migrations before
// returning. Any migration error is returned and the database is closed: the
// schema is not fully migrated and must not be used.
func Open(ctx context.Context, dbDir string, opts Options) (*OfferDB, error) {
	db, err := OpenSQL(dbDir, opts)
	if err != nil {
		return nil, err
	}

	result, err := NewRunner(db, opts).Run(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database %s: %w", Path(dbDir), err)
	}

	return &OfferDB{
		db:         db,
		dbPath:     Path(dbDir),
		now:        opts.clock(),
		migrations: result,
	}, nil
}
