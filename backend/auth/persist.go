package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// SnapshotKey is the key prefix snapshots are stored under.
const SnapshotKey = "auth-storage"

// KV is a keyed string store, such as database.SnapshotStore.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, data string) error
	Delete(ctx context.Context, key string) error
}

// KVPersister stores a Snapshot as JSON under one key.
type KVPersister struct {
	kv  KV
	key string
}

func NewKVPersister(kv KV, key string) *KVPersister {
	return &KVPersister{kv: kv, key: key}
}

func (p *KVPersister) Load(ctx context.Context) (Snapshot, bool, error) {
	data, ok, err := p.kv.Get(ctx, p.key)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", p.key, err)
	}
	return snap, true, nil
}

func (p *KVPersister) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.kv.Put(ctx, p.key, string(data))
}

// MemoryPersister keeps the snapshot in memory only.
type MemoryPersister struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (p *MemoryPersister) Load(context.Context) (Snapshot, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap == nil {
		return Snapshot{}, false, nil
	}
	return *p.snap, true, nil
}

func (p *MemoryPersister) Save(_ context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = &snap
	return nil
}
