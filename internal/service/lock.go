package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// localLocker 进程内互斥锁，Redis 不可用时使用；进程退出即释放，忽略 TTL
type localLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[string]string)}
}

func (l *localLocker) AcquireLock(_ context.Context, name string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[name]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[name] = token
	return token, true, nil
}

func (l *localLocker) ReleaseLock(_ context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] == token {
		delete(l.held, name)
	}
	return nil
}
