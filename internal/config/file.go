package config

import "time"

// File represents the structure of the .offerwatch configuration file.
// Pointer fields distinguish "not set" from an explicit false or zero.
type File struct {
	// Database configures where and how the SQLite file is opened.
	Database DatabaseFile `yaml:"database,omitempty"`

	// Migrations configures schema migration at startup.
	Migrations MigrationsFile `yaml:"migrations,omitempty"`
}

// DatabaseFile is the database section of the configuration file.
type DatabaseFile struct {
	// Dir is the database directory. A leading "~/" is expanded to the
	// home directory.
	Dir string `yaml:"dir,omitempty"`

	// BusyTimeout is a duration such as "5s".
	BusyTimeout *time.Duration `yaml:"busyTimeout,omitempty"`

	// WAL enables write-ahead logging.
	WAL *bool `yaml:"wal,omitempty"`
}

// MigrationsFile is the migrations section of the configuration file.
type MigrationsFile struct {
	// BatchSize is the number of rows per backfill batch.
	BatchSize int `yaml:"batchSize,omitempty"`

	// VerifyIntegrity runs a foreign key check before migrating.
	VerifyIntegrity *bool `yaml:"verifyIntegrity,omitempty"`
}
