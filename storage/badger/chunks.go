// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// ChunkStore implements storage.ChunkStore for BadgerDB.
//
// Every save writes a new generation of keys, then flips the generation
// pointer in a single transaction, then drops the previous generation. A
// crash mid-save leaves the previous snapshot readable.
type ChunkStore struct {
	backend *Backend
	owned   bool
	logger  *slog.Logger

	// serializes savers so generations are assigned in order
	mu sync.Mutex
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore creates a chunk store on an open backend. The backend stays
// owned by the caller.
func NewChunkStore(backend *Backend) *ChunkStore {
	return &ChunkStore{
		backend: backend,
		logger:  slog.Default().With("component", "chunk-store"),
	}
}

// OpenChunkStore opens a backend at path and returns a chunk store that
// closes it on Close.
func OpenChunkStore(path string) (*ChunkStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	store := NewChunkStore(backend)
	store.owned = true
	return store, nil
}

// Close closes the backend if the store opened it.
func (s *ChunkStore) Close() error {
	if s.owned && !s.backend.IsClosed() {
		return s.backend.Close()
	}
	return nil
}

// SaveChunks replaces the stored snapshot with chunks.
func (s *ChunkStore) SaveChunks(ctx context.Context, chunks []core.IndexedChunk) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentGeneration()
	if err != nil {
		return err
	}
	next := current + 1

	// leftovers of an interrupted save
	if err := s.backend.DropPrefix(makeGenerationPrefix(next)); err != nil {
		return err
	}

	err = s.backend.WriteBatch(func(wb *badger.WriteBatch) error {
		for i := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeChunkKey(next, uint32(i)), storage.MarshalChunk(&chunks[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(generationKey, encodeGeneration(next)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	if current > 0 {
		if err := s.backend.DropPrefix(makeGenerationPrefix(current)); err != nil {
			s.logger.Warn("failed to drop previous snapshot", "generation", current, "err", err)
		}
	}
	s.logger.Debug("snapshot saved", "generation", next, "count", len(chunks))
	return nil
}

// LoadChunks returns the current snapshot. Returns nil, nil if nothing has
// been saved yet.
func (s *ChunkStore) LoadChunks(ctx context.Context) ([]core.IndexedChunk, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var chunks []core.IndexedChunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		generation, err := readGeneration(tx)
		if err != nil || generation == 0 {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeGenerationPrefix(generation)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var chunk *core.IndexedChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *ChunkStore) currentGeneration() (uint64, error) {
	var generation uint64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		generation, err = readGeneration(tx)
		return err
	}, false)
	return generation, err
}

func readGeneration(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get(generationKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var generation uint64
	err = item.Value(func(val []byte) error {
		generation = decodeGeneration(val)
		return nil
	})
	return generation, err
}
