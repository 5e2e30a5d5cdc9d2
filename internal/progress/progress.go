// Package progress stores typed per-source progress blobs on a storage.KV.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tinytactics/internal/srs"
	"tinytactics/internal/storage"
)

const (
	resumePrefix   = "resume:"
	cardsPrefix    = "cards:"
	setStartPrefix = "setstart:"
)

// Resume is a snapshot that lets a session continue where it stopped.
type Resume struct {
	SourceID      string    `json:"sourceId"`
	File          string    `json:"file"`
	Mode          string    `json:"mode"`
	Order         []int     `json:"order"`
	Cursor        int       `json:"cursor"`
	Errors        int       `json:"errors"`
	Solved        int       `json:"solved"`
	ElapsedMillis int64     `json:"elapsedMillis"`
	SetStart      int       `json:"setStart"`
	Level         int       `json:"level"`
	LevelErrors   int       `json:"levelErrors"`
	LevelProgress int       `json:"levelProgress"`
	SavedAt       time.Time `json:"savedAt"`
}

// Repository reads and writes progress for puzzle sources.
type Repository struct {
	kv  storage.KV
	log *slog.Logger
}

// New wraps kv. A nil logger uses slog.Default.
func New(kv storage.KV, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{kv: kv, log: logger}
}

// load reads key into v. Missing keys report false; undecodable blobs are
// deleted and also report false.
func (r *Repository) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.log.Warn("discarding corrupt progress", "key", key, "error", err)
		r.discard(ctx, key)
		return false, nil
	}
	return true, nil
}

// discard deletes an unusable blob. Failures are logged; the blob is
// treated as absent either way.
func (r *Repository) discard(ctx context.Context, key string) {
	if err := r.kv.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.log.Warn("delete corrupt progress", "key", key, "error", err)
	}
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadResume returns the saved snapshot for source, if any.
func (r *Repository) LoadResume(ctx context.Context, source string) (Resume, bool, error) {
	var res Resume
	ok, err := r.load(ctx, resumePrefix+source, &res)
	if err != nil || !ok {
		return Resume{}, false, err
	}
	if len(res.Order) == 0 || res.Cursor < 0 || res.Cursor >= len(res.Order) {
		r.log.Warn("discarding invalid resume state", "source", source, "cursor", res.Cursor, "len", len(res.Order))
		r.discard(ctx, resumePrefix+source)
		return Resume{}, false, nil
	}
	return res, true, nil
}

// SaveResume stores a snapshot, stamping SavedAt when empty.
func (r *Repository) SaveResume(ctx context.Context, source string, res Resume) error {
	if res.SavedAt.IsZero() {
		res.SavedAt = time.Now()
	}
	res.SourceID = source
	return r.save(ctx, resumePrefix+source, res)
}

// DeleteResume forgets the snapshot for source.
func (r *Repository) DeleteResume(ctx context.Context, source string) error {
	if err := r.kv.Delete(ctx, resumePrefix+source); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete resume: %w", err)
	}
	return nil
}

// LoadCards returns the spaced-repetition cards for source. A missing or
// corrupt blob yields an empty map.
func (r *Repository) LoadCards(ctx context.Context, source string) (map[int]srs.Card, error) {
	cards := map[int]srs.Card{}
	ok, err := r.load(ctx, cardsPrefix+source, &cards)
	if err != nil || !ok || cards == nil {
		return map[int]srs.Card{}, err
	}
	return cards, nil
}

// SaveCards stores the cards for source.
func (r *Repository) SaveCards(ctx context.Context, source string, cards map[int]srs.Card) error {
	return r.save(ctx, cardsPrefix+source, cards)
}

// LoadSetStart reads the legacy block start of the level mode. It is a bare
// decimal integer so older saves stay readable.
func (r *Repository) LoadSetStart(ctx context.Context, source string) (int, bool, error) {
	key := setStartPrefix + source
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load %s: %w", key, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		r.log.Warn("discarding corrupt set start", "key", key, "value", string(data))
		r.discard(ctx, key)
		return 0, false, nil
	}
	return n, true, nil
}

// SaveSetStart stores the level mode block start.
func (r *Repository) SaveSetStart(ctx context.Context, source string, n int) error {
	key := setStartPrefix + source
	if err := r.kv.Put(ctx, key, []byte(strconv.Itoa(n))); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// HasProgress reports whether anything is saved for source.
func (r *Repository) HasProgress(ctx context.Context, source string) bool {
	for _, p := range []string{resumePrefix, cardsPrefix, setStartPrefix} {
		if _, err := r.kv.Get(ctx, p+source); err == nil {
			return true
		}
	}
	return false
}

// Clear removes every kind of progress for source.
func (r *Repository) Clear(ctx context.Context, source string) error {
	var errs []error
	for _, p := range []string{resumePrefix, cardsPrefix, setStartPrefix} {
		if err := r.kv.Delete(ctx, p+source); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Errorf("clear %s: %w", p+source, err))
		}
	}
	return errors.Join(errs...)
}
