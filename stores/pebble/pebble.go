// Package pebble persists prepared pipelines in a local pebble database,
// keyed by name. It gives trained models a durable home between the process
// that prepares them and the processes that apply them.
package pebble

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/creekml/creek"
)

// ErrNotFound is returned by Get and Delete when no model exists under the
// requested name.
var ErrNotFound = errors.New("model not found")

var keyPrefix = []byte("model/")

// ModelStore is a named collection of serialized prepared pipelines.
type ModelStore struct {
	db *pebble.DB
}

// Open opens (or creates) a store rooted at dir.
func Open(dir string) (*ModelStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return &ModelStore{db: db}, nil
}

// Put serializes pg and stores it under name, replacing any previous model
// with that name.
func (s *ModelStore) Put(name string, pg *creek.PreparedGraph) error {
	var buf bytes.Buffer
	if err := pg.Serialize(&buf); err != nil {
		return fmt.Errorf("serialize model %q: %w", name, err)
	}
	return s.db.Set(key(name), buf.Bytes(), &pebble.WriteOptions{Sync: true})
}

// Get loads and deserializes the model stored under name.
func (s *ModelStore) Get(name string) (*creek.PreparedGraph, error) {
	v, closer, err := s.db.Get(key(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	defer closer.Close()

	pg, err := creek.Deserialize(bytes.NewReader(v))
	if err != nil {
		return nil, fmt.Errorf("deserialize model %q: %w", name, err)
	}
	return pg, nil
}

// List returns the names of all stored models in key order.
func (s *ModelStore) List() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: append(append([]byte{}, keyPrefix...), 0xff),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		names = append(names, string(bytes.TrimPrefix(iter.Key(), keyPrefix)))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes the model stored under name, failing with ErrNotFound if
// no such model exists. The existence check and the delete are not atomic:
// the store expects a single writer per name, matching the one-trainer
// many-appliers deployment it is built for.
func (s *ModelStore) Delete(name string) error {
	k := key(name)
	if _, closer, err := s.db.Get(k); err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	} else {
		closer.Close()
	}
	return s.db.Delete(k, &pebble.WriteOptions{Sync: true})
}

// Close flushes and closes the underlying database.
func (s *ModelStore) Close() error {
	if err := s.db.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}

func key(name string) []byte {
	return append(append([]byte{}, keyPrefix...), name...)
}
