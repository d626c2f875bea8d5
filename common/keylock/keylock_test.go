package keylock

import (
	"sync"
	"testing"
)

func TestWithLockSerializesSameKey(t *testing.T) {
	l := New(64)
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WithLock(UserKey(42), func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Fatalf("lost updates: counter=%d want 100", counter)
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	l := New(64)
	k1 := UserKey(1)
	// 找一个落在不同分片上的 key
	k2 := ""
	for i := int64(2); ; i++ {
		if c := UserKey(i); l.idx(c) != l.idx(k1) {
			k2 = c
			break
		}
	}

	l.Lock(k1)
	defer l.Unlock(k1)

	done := make(chan struct{})
	go func() {
		_ = l.WithLock(k2, func() error { return nil })
		close(done)
	}()
	<-done
}

func TestNewRoundsUpShards(t *testing.T) {
	l := New(10)
	if len(l.shards) != 16 {
		t.Fatalf("expected 16 shards, got %d", len(l.shards))
	}
	l = New(64)
	if len(l.shards) != 64 {
		t.Fatalf("expected 64 shards, got %d", len(l.shards))
	}
}
