// Package lock provides per-key mutual exclusion. The multipart protocol
// uses it to serialize updates against a single upload id within the
// process.
package lock

import (
	"sync"

	"github.com/apex/log"
)

type KeyLocker struct {
	mapMutex sync.Mutex
	keyMap   map[string]*sync.Mutex
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{
		keyMap: make(map[string]*sync.Mutex),
	}
}

func (l *KeyLocker) Acquire(key string) {
	l.mapMutex.Lock()
	keyMutex, ok := l.keyMap[key]
	if !ok {
		keyMutex = &sync.Mutex{}
		l.keyMap[key] = keyMutex
	}
	l.mapMutex.Unlock()

	keyMutex.Lock()
}

func (l *KeyLocker) Release(key string) {
	l.mapMutex.Lock()
	keyMutex, ok := l.keyMap[key]
	l.mapMutex.Unlock()

	if !ok {
		log.Errorf("Release called on key (%s) with no mutex", key)
		return
	}

	keyMutex.Unlock()
}

func (l *KeyLocker) WithLock(key string, f func() error) error {
	l.Acquire(key)
	defer l.Release(key)
	return f()
}
