package keylock

import (
	"hash/fnv"
	"strconv"
	"sync"
)

// KeyLock 按 key 分片的互斥锁
// 用于账变等按用户串行化的临界区：同一用户的读改写全程持锁，
// 不同用户落在不同分片上互不阻塞。进程内单实例即可满足单进程部署模型。
type KeyLock struct {
	shards []sync.Mutex
	mask   uint32
}

// New 创建 KeyLock，shards 向上取 2 的幂（最小 16）
func New(shards int) *KeyLock {
	n := 16
	for n < shards {
		n <<= 1
	}
	return &KeyLock{shards: make([]sync.Mutex, n), mask: uint32(n - 1)}
}

func (l *KeyLock) idx(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() & l.mask
}

// Lock 锁定 key 所在分片
func (l *KeyLock) Lock(key string) { l.shards[l.idx(key)].Lock() }

// Unlock 释放 key 所在分片
func (l *KeyLock) Unlock(key string) { l.shards[l.idx(key)].Unlock() }

// WithLock 在持锁状态下执行 fn
func (l *KeyLock) WithLock(key string, fn func() error) error {
	l.Lock(key)
	defer l.Unlock(key)
	return fn()
}

// UserKey 用户维度锁 key
func UserKey(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) }

// CodeKey 促销码维度锁 key
func CodeKey(code string) string { return "promo:" + code }
