// Package badgerstore is a projects.Store on an embedded Badger database.
// Records are JSON documents under the key "<table>/<project_id>".
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/jrsteele09/media-admin/projects"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ projects.Store = (*Store)(nil)

type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives Badger's own log output. Nil silences it.
	Logger *zerolog.Logger
}

type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
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
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(table, projectID string) []byte {
	return []byte(table + "/" + projectID)
}

func (s *Store) Scan(ctx context.Context, table string) ([]projects.Project, error) {
	items := []projects.Project{}
	prefix := []byte(table + "/")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var p projects.Project
				if err := json.Unmarshal(val, &p); err != nil {
					log.Ctx(ctx).Warn().Err(err).Str("key", string(item.Key())).Msg("skipping undecodable project record")
					return nil
				}
				items = append(items, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("[badgerstore Scan] %s: %w", table, err)
	}
	return items, nil
}

func (s *Store) Put(ctx context.Context, table string, project projects.Project) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("[badgerstore Put] marshal: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(table, project.ProjectID), data)
	}); err != nil {
		return fmt.Errorf("[badgerstore Put] %s: %w", table, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table, projectID string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(table, projectID))
	}); err != nil {
		return fmt.Errorf("[badgerstore Delete] %s: %w", table, err)
	}
	return nil
}
