package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/research-hub/internal/snapshot"
)

// snapshotVersion is written next to every snapshot. Snapshots carrying a
// different version are discarded on load.
const snapshotVersion = 0

const saveTimeout = 5 * time.Second

type envelope[T any] struct {
	State   T   `json:"state"`
	Version int `json:"version"`
}

// persister writes one store's snapshot under a fixed key. Calls are
// serialised by the owning store.
type persister[T any] struct {
	storage snapshot.Storage
	key     string
	log     *zap.Logger
	last    []byte
}

func newPersister[T any](storage snapshot.Storage, key string, log *zap.Logger) *persister[T] {
	return &persister[T]{storage: storage, key: key, log: log}
}

func (p *persister[T]) load(ctx context.Context) (T, bool) {
	var zero T
	if p.storage == nil {
		return zero, false
	}
	raw, err := p.storage.Load(ctx, p.key)
	if errors.Is(err, snapshot.ErrNotFound) {
		return zero, false
	}
	if err != nil {
		p.log.Warn("load snapshot", zap.String("key", p.key), zap.Error(err))
		return zero, false
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		p.log.Warn("decode snapshot", zap.String("key", p.key), zap.Error(err))
		return zero, false
	}
	if env.Version != snapshotVersion {
		p.log.Info("discarding snapshot of another version",
			zap.String("key", p.key), zap.Int("version", env.Version))
		return zero, false
	}
	return env.State, true
}

// save writes state unless it equals the last successful write.
func (p *persister[T]) save(state T) {
	if p.storage == nil {
		return
	}
	raw, err := json.Marshal(envelope[T]{State: state, Version: snapshotVersion})
	if err != nil {
		p.log.Error("encode snapshot", zap.String("key", p.key), zap.Error(err))
		return
	}
	if bytes.Equal(raw, p.last) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := p.storage.Save(ctx, p.key, raw); err != nil {
		p.log.Warn("save snapshot", zap.String("key", p.key), zap.Error(err))
		return
	}
	p.last = raw
}
