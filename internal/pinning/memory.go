package pinning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Memory is a content-addressed in-process pinner.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	names map[string]string
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte), names: make(map[string]string)}
}

func (m *Memory) PinFile(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("pinning: read %s: %w", name, err)
	}
	return m.put(cleanName(name), data)
}

func (m *Memory) PinJSON(_ context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("pinning: encode %s: %w", name, err)
	}
	return m.put(cleanName(name), data)
}

func (m *Memory) put(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	sum := sha256.Sum256(data)
	cid := hex.EncodeToString(sum[:])
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[cid] = append([]byte(nil), data...)
	m.names[cid] = name
	return SchemeIPFS + cid, nil
}

// Get returns the pinned bytes for uri.
func (m *Memory) Get(uri string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[CID(uri)]
	return data, ok
}

// Len reports how many objects are pinned.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
