package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// processingLock admits one action at a time into a game. Each holder gets
// a lease; a watchdog force-releases leases held longer than timeout so a
// stuck action cannot brick the game.
type processingLock struct {
	slot    chan struct{}
	timeout time.Duration
	logger  *zap.Logger
	gameID  string

	mu      sync.Mutex
	current uint64
	next    uint64
	expired int
}

type lease struct {
	lock  *processingLock
	id    uint64
	timer *time.Timer
}

func newProcessingLock(gameID string, timeout time.Duration, logger *zap.Logger) *processingLock {
	return &processingLock{
		slot:    make(chan struct{}, 1),
		timeout: timeout,
		logger:  logger,
		gameID:  gameID,
	}
}

// acquire waits for the slot or for ctx to end.
func (l *processingLock) acquire(ctx context.Context) (*lease, error) {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}

	l.mu.Lock()
	l.next++
	ls := &lease{lock: l, id: l.next}
	l.current = ls.id
	l.mu.Unlock()

	if l.timeout > 0 {
		ls.timer = time.AfterFunc(l.timeout, func() {
			if l.release(ls.id) {
				l.mu.Lock()
				l.expired++
				l.mu.Unlock()
				if l.logger != nil {
					l.logger.Warn("watchdog released processing lock",
						zap.String("game_id", l.gameID),
						zap.Uint64("lease", ls.id),
						zap.Duration("timeout", l.timeout),
					)
				}
			}
		})
	}
	return ls, nil
}

// release frees the slot if id still holds it.
func (l *processingLock) release(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != id {
		return false
	}
	l.current = 0
	<-l.slot
	return true
}

// expiredCount reports how many leases the watchdog has reclaimed.
func (l *processingLock) expiredCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expired
}

// Release returns the lease. Releasing a lease the watchdog already
// reclaimed does nothing and reports false.
func (ls *lease) Release() bool {
	if ls.timer != nil {
		ls.timer.Stop()
	}
	return ls.lock.release(ls.id)
}
