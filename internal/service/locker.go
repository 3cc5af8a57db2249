package service

import (
	"context"
	"sync"

	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// MemoryRoomLocker is the single-process room guard
type MemoryRoomLocker struct {
	mu    sync.Mutex
	rooms map[string]struct{}
}

func NewMemoryRoomLocker() *MemoryRoomLocker {
	return &MemoryRoomLocker{rooms: make(map[string]struct{})}
}

func (l *MemoryRoomLocker) Acquire(_ context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.rooms[roomID]; busy {
		return nil, apperrors.NewRoomBusyError(roomID)
	}
	l.rooms[roomID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.rooms, roomID)
			l.mu.Unlock()
		})
	}, nil
}

// Busy reports whether the room currently holds the lock
func (l *MemoryRoomLocker) Busy(roomID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.rooms[roomID]
	return busy
}
