package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/miradorstack/microres/internal/models"
)

// ErrNotFound is returned when an evaluation id is unknown.
var ErrNotFound = errors.New("evaluation not found")

const (
	evalPrefix = "eval/"
	idPrefix   = "id/"
	// DefaultListLimit caps List when the request has no limit.
	DefaultListLimit = 50
)

// Config selects where the history database lives.
type Config struct {
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// Store persists evaluation results in BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

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
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates the history database.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("history path is required for persistent storage")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// testIDPrefix escapes the test id so that "a" never prefixes the keys of "a/b".
func testIDPrefix(testID string) string {
	return evalPrefix + url.PathEscape(testID) + "/"
}

func resultKey(r models.EvaluationResult) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", testIDPrefix(r.TestID), r.CreatedAt.UnixNano(), r.ID))
}

// Save stores result under its test id and creation time.
func (s *Store) Save(ctx context.Context, result models.EvaluationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.ID == "" {
		return errors.New("evaluation result has no id")
	}
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	key := resultKey(result)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set([]byte(idPrefix+result.ID), key)
	})
}

// Get loads one evaluation by id.
func (s *Store) Get(ctx context.Context, id string) (models.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return models.EvaluationResult{}, err
	}
	var out models.EvaluationResult
	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get([]byte(idPrefix + id))
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.EvaluationResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.EvaluationResult{}, err
	}
	return out, nil
}

// List returns evaluations newest first, optionally restricted to one test id.
func (s *Store) List(ctx context.Context, req models.ListEvaluationsRequest) ([]models.EvaluationResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	prefix := []byte(evalPrefix)
	if req.TestID != "" {
		prefix = []byte(testIDPrefix(req.TestID))
	}

	out := make([]models.EvaluationResult, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r models.EvaluationResult
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				s.logger.Warn("skipping unreadable evaluation", slog.String("key", string(it.Item().Key())), slog.String("error", err.Error()))
				continue
			}
			if req.TestID != "" && r.TestID != req.TestID {
				continue
			}
			if !req.Since.IsZero() && r.CreatedAt.Before(req.Since) {
				continue
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
