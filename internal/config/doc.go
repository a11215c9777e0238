// Package config provides the configuration of offerwatch: where the database
// lives, how it is opened, and how migrations run. Values come from defaults,
// an optional YAML file and CLI flags, in that order of precedence.
package config
