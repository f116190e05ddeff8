package rootfs

import "sync"

// inodes hands out stable inode numbers keyed by object identity. The first key
// allocated gets inode 1.
type inodes struct {
	mu      sync.Mutex
	highest uint64
	byKey   map[string]uint64
}

func newInodes() *inodes {
	return &inodes{byKey: make(map[string]uint64)}
}

func (t *inodes) get(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ino, ok := t.byKey[key]; ok {
		return ino
	}
	t.highest++
	t.byKey[key] = t.highest
	return t.highest
}
