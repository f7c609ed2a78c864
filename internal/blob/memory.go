package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local runs. Writes are
// last-writer-wins with no coordination, like the bucket it stands in for.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject

	// PutErr, when set, is returned by Put for keys containing the
	// matching substring. Lets tests inject publish failures.
	PutErr map[string]error

	// GetHook, when set, runs before each Get returns. Lets tests
	// interleave competing writers inside a read-modify-write cycle.
	GetHook func(bucket, key string)
}

type memObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

func objKey(bucket, key string) string { return bucket + "/" + key }

// Seed stores an object directly, for test setup.
func (m *MemoryStore) Seed(bucket, key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objKey(bucket, key)] = memObject{data: append([]byte(nil), data...), contentType: contentType}
}

// ContentType returns the stored content type for a key, or "".
func (m *MemoryStore) ContentType(bucket, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[objKey(bucket, key)].contentType
}

// Get returns the full contents of an object.
func (m *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	obj, ok := m.objects[objKey(bucket, key)]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	// Runs unlocked: the hook may issue competing reads and writes
	// against this copy's now-stale snapshot.
	if m.GetHook != nil {
		m.GetHook(bucket, key)
	}
	return append([]byte(nil), obj.data...), nil
}

// Put writes an object, overwriting any existing value at the key.
func (m *MemoryStore) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	for substr, err := range m.PutErr {
		if strings.Contains(key, substr) {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objKey(bucket, key)] = memObject{data: data, contentType: contentType}
	return nil
}

// Copy duplicates an object within the bucket.
func (m *MemoryStore) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objKey(bucket, srcKey)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, srcKey)
	}
	m.objects[objKey(bucket, dstKey)] = obj
	return nil
}

// List returns the keys under a prefix in lexical order.
func (m *MemoryStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	full := objKey(bucket, prefix)
	for k := range m.objects {
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes an object; missing keys are ignored.
func (m *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objKey(bucket, key))
	return nil
}

// Download writes an object's contents to a local file.
func (m *MemoryStore) Download(ctx context.Context, bucket, key, localPath string) error {
	data, err := m.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

var _ Store = (*MemoryStore)(nil)
