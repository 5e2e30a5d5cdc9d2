package storage

import (
	"fmt"
	"log/slog"
)

// Drivers understood by Dial.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the badger directory.
	Path string
	// DSN is the postgres connection string.
	DSN    string
	Debug  bool
	Logger *slog.Logger
}

// Dial opens the backend named by opts.Driver.
func Dial(opts Options) (Backend, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverBadger:
		cfg := DefaultBadgerConfig(opts.Path)
		cfg.Logger = opts.Logger
		return OpenBadger(cfg)
	case DriverPostgres:
		db, err := Open(opts.DSN, opts.Debug)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
