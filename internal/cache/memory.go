package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

const memorySweepThreshold = 1024

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time // 零值表示永不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore 进程内缓存，未启用 Redis 时使用
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// GetJSON 获取缓存并反序列化，过期视为未命中
func (m *MemoryStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || entry.expired(m.now()) {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入缓存，ttl <= 0 表示不过期
func (m *MemoryStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{payload: payload}
	now := m.now()
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) >= memorySweepThreshold {
		m.sweepLocked(now)
	}
	m.items[key] = entry
	return nil
}

// Incr 原子自增
func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if entry, ok := m.items[key]; ok && !entry.expired(m.now()) {
		parsed, err := strconv.ParseInt(string(entry.payload), 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}
	current++
	m.items[key] = memoryEntry{payload: []byte(strconv.FormatInt(current, 10))}
	return current, nil
}

// Len 当前条目数（含已过期未清理的）
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close 清空缓存
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryEntry)
	return nil
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range m.items {
		if entry.expired(now) {
			delete(m.items, key)
		}
	}
}
