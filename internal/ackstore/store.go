// Package ackstore persists the set of feedback prompts the user has already
// acknowledged, so they are not shown again after a restart.
package ackstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	json "github.com/goccy/go-json"
)

var ackKey = []byte("feedback_acks")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("ack store closed")

// Store is a persistent set of acknowledged ids.
type Store interface {
	Has(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

type badgerStore struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// Open opens the store in dir. An empty dir keeps everything in memory.
func Open(dir string, logger badger.Logger) (Store, error) {
	db, err := createDb(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("open ack store: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func createDb(dir string, logger badger.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = logger
	opts.Compression = options.ZSTD
	return badger.Open(opts)
}

func (s *badgerStore) Has(ctx context.Context, id string) (bool, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(ids, id)
	return i < len(ids) && ids[i] == id, nil
}

// Add inserts id. Adding an id that is already present changes nothing.
func (s *badgerStore) Add(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return errors.New("ack id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			return addTo(txn, id)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

func addTo(txn *badger.Txn, id string) error {
	ids, err := readSet(txn)
	if err != nil {
		return err
	}
	i := sort.SearchStrings(ids, id)
	if i < len(ids) && ids[i] == id {
		return nil
	}
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return txn.Set(ackKey, data)
}

// List returns the acknowledged ids in sorted order.
func (s *badgerStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ids, err = readSet(txn)
		return err
	})
	return ids, err
}

func (s *badgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func readSet(txn *badger.Txn) ([]string, error) {
	item, err := txn.Get(ackKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ids)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ackKey, err)
	}
	sort.Strings(ids)
	return ids, nil
}
