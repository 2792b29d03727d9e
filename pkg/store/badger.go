package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// BadgerConfig holds configuration for a BadgerDB-backed store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// History is how many past saves to retain per map; 0 keeps none.
	History int
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...any)   { l.log.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.log.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.log.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.log.Debugf(format, args...) }

// BadgerStore keeps the current snapshot of a named map under one key and,
// optionally, a bounded history of earlier saves under a prefix. History
// entries are numbered from a persisted per-map sequence, so numbers keep
// growing across restarts even though graph revisions start over.
type BadgerStore struct {
	db      *badger.DB
	name    string
	history int
	seq     *badger.Sequence
}

// OpenBadger opens a BadgerDB store.
func OpenBadger(cfg BadgerConfig, name string, log *zap.Logger) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for persistent database")
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
	if log != nil {
		opts = opts.WithLogger(&badgerLogger{log: log.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	b := &BadgerStore{db: db, name: name, history: cfg.History}
	if b.history > 0 {
		b.seq, err = db.GetSequence(b.seqKey(), 16)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open history sequence: %w", err)
		}
	}
	return b, nil
}

// Close releases the history sequence and the database.
func (b *BadgerStore) Close() error {
	var err error
	if b.seq != nil {
		err = b.seq.Release()
	}
	return errors.Join(err, b.db.Close())
}

func (b *BadgerStore) currentKey() []byte {
	return []byte("map/" + b.name + "/current")
}

func (b *BadgerStore) seqKey() []byte {
	return []byte("map/" + b.name + "/seq")
}

func (b *BadgerStore) historyPrefix() []byte {
	return []byte("map/" + b.name + "/hist/")
}

func (b *BadgerStore) historyKey(seq uint64) []byte {
	k := b.historyPrefix()
	return binary.BigEndian.AppendUint64(k, seq)
}

// Load reads the current snapshot.
func (b *BadgerStore) Load(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, loadErr(BackendBadger, err)
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.currentKey())
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Snapshot{}, loadErr(BackendBadger, ErrNoSnapshot)
	}
	if err != nil {
		return model.Snapshot{}, loadErr(BackendBadger, err)
	}
	s, err := Decode(data)
	if err != nil {
		return model.Snapshot{}, loadErr(BackendBadger, err)
	}
	return s, nil
}

// Save writes the snapshot as current and, when history is enabled, as a
// new history entry, pruning the oldest entries beyond the limit.
func (b *BadgerStore) Save(ctx context.Context, s model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return saveErr(BackendBadger, err)
	}
	data, err := Encode(s, false)
	if err != nil {
		return saveErr(BackendBadger, err)
	}
	var seq uint64
	if b.seq != nil {
		n, err := b.seq.Next()
		if err != nil {
			return saveErr(BackendBadger, fmt.Errorf("next history sequence: %w", err))
		}
		seq = n + 1
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(b.currentKey(), data); err != nil {
			return err
		}
		if seq == 0 {
			return nil
		}
		if err := txn.Set(b.historyKey(seq), data); err != nil {
			return err
		}
		seqs := b.sequences(txn)
		for len(seqs) > b.history {
			if err := txn.Delete(b.historyKey(seqs[0])); err != nil {
				return err
			}
			seqs = seqs[1:]
		}
		return nil
	})
	if err != nil {
		return saveErr(BackendBadger, err)
	}
	return nil
}

// History lists retained saves, oldest first.
func (b *BadgerStore) History(ctx context.Context) ([]Version, error) {
	var out []Version
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := b.historyPrefix()
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			k := item.Key()
			if len(k) != len(prefix)+8 {
				continue
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			s, err := Decode(data)
			if err != nil {
				return err
			}
			out = append(out, Version{
				Seq:      binary.BigEndian.Uint64(k[len(prefix):]),
				Revision: s.Revision,
				Nodes:    len(s.Nodes),
				Edges:    len(s.Edges),
			})
		}
		return nil
	})
	if err != nil {
		return nil, loadErr(BackendBadger, err)
	}
	return out, nil
}

// LoadVersion reads one retained history entry.
func (b *BadgerStore) LoadVersion(ctx context.Context, seq uint64) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, loadErr(BackendBadger, err)
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.historyKey(seq))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Snapshot{}, loadErr(BackendBadger, fmt.Errorf("version %d: %w", seq, ErrNoSnapshot))
	}
	if err != nil {
		return model.Snapshot{}, loadErr(BackendBadger, err)
	}
	s, err := Decode(data)
	if err != nil {
		return model.Snapshot{}, loadErr(BackendBadger, err)
	}
	return s, nil
}

// Maps lists the names of every map in the database.
func (b *BadgerStore) Maps(ctx context.Context) ([]string, error) {
	var names []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("map/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := string(it.Item().Key())
			if name, ok := strings.CutSuffix(strings.TrimPrefix(k, "map/"), "/current"); ok {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, loadErr(BackendBadger, err)
	}
	return names, nil
}

func (b *BadgerStore) sequences(txn *badger.Txn) []uint64 {
	prefix := b.historyPrefix()
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var seqs []uint64
	for it.Rewind(); it.Valid(); it.Next() {
		k := it.Item().Key()
		if len(k) != len(prefix)+8 {
			continue
		}
		seqs = append(seqs, binary.BigEndian.Uint64(k[len(prefix):]))
	}
	return seqs
}
