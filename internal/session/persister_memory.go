package session

import (
	"context"
	"fmt"
	"sync"

	id "kycportal/pkg/domain"
	"kycportal/pkg/platform/sentinel"
)

// MemoryPersister keeps encoded records in process memory. Records survive
// workspace eviction but not a restart.
type MemoryPersister struct {
	mu      sync.RWMutex
	records map[id.WorkspaceID][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{records: make(map[id.WorkspaceID][]byte)}
}

func (p *MemoryPersister) Load(_ context.Context, ws id.WorkspaceID) (*Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.records[ws]
	if !ok {
		return nil, fmt.Errorf("session for workspace %s: %w", ws, sentinel.ErrNotFound)
	}
	return decodeRecord(b)
}

func (p *MemoryPersister) Save(_ context.Context, ws id.WorkspaceID, rec Record) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[ws] = b
	return nil
}

func (p *MemoryPersister) Delete(_ context.Context, ws id.WorkspaceID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, ws)
	return nil
}

// Len reports how many records are stored.
func (p *MemoryPersister) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}
