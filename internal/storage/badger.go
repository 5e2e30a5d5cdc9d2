package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const sessionPrefix = "session:"

// BadgerConfig holds configuration for the embedded store.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// SyncWrites trades write latency for durability.
	SyncWrites bool
	// Logger receives badger's internal logs. Nil silences them.
	Logger *slog.Logger
	// GCDiscardRatio is the garbage ratio that triggers a value log rewrite.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns the production defaults for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true, GCDiscardRatio: 0.5}
}

// InMemoryBadgerConfig returns a configuration without disk I/O.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true, GCDiscardRatio: 0.5}
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Badger is a Backend on an embedded badger database.
type Badger struct {
	db    *badger.DB
	ratio float64
}

// OpenBadger opens the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	ratio := cfg.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &Badger{db: db, ratio: ratio}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (b *Badger) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *Badger) Close() error { return b.db.Close() }

// CollectGarbage rewrites value log files until nothing is left to reclaim.
func (b *Badger) CollectGarbage() error {
	for {
		err := b.db.RunValueLogGC(b.ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) ||
			errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func sessionKey(id uuid.UUID) string { return sessionPrefix + id.String() }

func (b *Badger) CreateSession(ctx context.Context, rec SessionRecord) error {
	if _, err := b.Get(ctx, sessionKey(rec.ID)); err == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put(ctx, sessionKey(rec.ID), data)
}

func (b *Badger) CompleteSession(ctx context.Context, id uuid.UUID, res SessionResult) error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec SessionRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return err
		}
		rec.apply(res)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set([]byte(sessionKey(id)), data)
	})
}

func (b *Badger) FetchStats(_ context.Context) (Stats, error) {
	var st Stats
	prefix := []byte(sessionPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec SessionRecord
			err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
			if err != nil {
				return err
			}
			st.add(rec)
		}
		return nil
	})
	return st, err
}
