package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

const entryKeyPrefix = "entry/"

// BadgerConfig holds the options for a Badger-backed provider.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCInterval enables periodic value log GC when positive.
	GCInterval time.Duration
	Logger     *slog.Logger
}

// Badger implements Provider on top of an embedded BadgerDB.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
	stopGC chan struct{}
	gcDone chan struct{}
}

var _ Provider = (*Badger)(nil)

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
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

// NewBadger opens a Badger provider.
func NewBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("storage: badger path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("storage: create badger dir: %w", err)
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
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	b := &Badger{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.stopGC = make(chan struct{})
		b.gcDone = make(chan struct{})
		go b.runGC(cfg.GCInterval)
	}
	return b, nil
}

func entryKey(addr models.Address) []byte {
	return []byte(entryKeyPrefix + string(addr))
}

// Put stores e under its content address.
func (b *Badger) Put(_ context.Context, e models.Entry) (models.Address, error) {
	addr := e.Address()
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("storage: encode entry: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entryKey(addr)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(entryKey(addr), data)
	})
	if err != nil {
		return "", apperr.Unavailable("storage: put "+addr.String(), err)
	}
	return addr, nil
}

// Get returns the entry stored at addr.
func (b *Badger) Get(_ context.Context, addr models.Address) (models.Entry, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(addr))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Entry{}, fmt.Errorf("storage: get %s: %w", addr, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Entry{}, apperr.Unavailable("storage: get "+addr.String(), err)
	}
	var e models.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return models.Entry{}, fmt.Errorf("storage: decode %s: %w", addr, err)
	}
	return e, nil
}

// Has reports whether addr is stored.
func (b *Badger) Has(_ context.Context, addr models.Address) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(addr))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, apperr.Unavailable("storage: has "+addr.String(), err)
	}
}

// Remove deletes the key for addr.
func (b *Badger) Remove(_ context.Context, addr models.Address) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(addr))
	})
	if err != nil {
		return apperr.Unavailable("storage: remove "+addr.String(), err)
	}
	return nil
}

// Close stops value log GC and closes the database.
func (b *Badger) Close() error {
	if b.stopGC != nil {
		close(b.stopGC)
		<-b.gcDone
	}
	return b.db.Close()
}

func (b *Badger) runGC(interval time.Duration) {
	defer close(b.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			if err := b.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) && b.logger != nil {
				b.logger.Warn("storage: badger value log GC failed", slog.String("error", err.Error()))
			}
		}
	}
}
