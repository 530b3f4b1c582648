package service

import (
	"sort"
	"sync"
)

// KeyedLocker hands out one mutex per key; entries are dropped once unused.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: map[string]*keyedLock{}}
}

// Lock acquires every key in sorted order and returns the matching release func.
// Duplicate keys are acquired once.
func (l *KeyedLocker) Lock(keys ...string) (unlock func()) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	uniq := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k != sorted[i-1] {
			uniq = append(uniq, k)
		}
	}

	held := make([]*keyedLock, 0, len(uniq))
	for _, k := range uniq {
		kl := l.acquire(k)
		kl.mu.Lock()
		held = append(held, kl)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(uniq[i])
			}
		})
	}
}

// size number of live entries
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *KeyedLocker) acquire(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyedLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs <= 0 {
		delete(l.locks, key)
	}
}
