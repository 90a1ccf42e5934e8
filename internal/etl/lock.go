package etl

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// RunLock is an O_EXCL lock file guarding one checkpoint. A lock older than its TTL
// is treated as abandoned; a live holder keeps it fresh with a heartbeat.
type RunLock struct {
	path string
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func AcquireLock(path string, ttl time.Duration) (*RunLock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, `{"pid":%d,"time":%d}`+"\n", os.Getpid(), time.Now().Unix())
			_ = f.Close()

			l := &RunLock{path: path, stop: make(chan struct{})}
			l.startHeartbeat(ttl)
			return l, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}

		fi, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}
		if ttl > 0 && time.Since(fi.ModTime()) >= ttl {
			_ = os.Remove(path)
			continue
		}

		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return nil, fmt.Errorf("%w: %s", ErrLocked, path)
}

func (l *RunLock) startHeartbeat(ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	interval := ttl / 3
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-l.stop:
				return
			case now := <-t.C:
				_ = os.Chtimes(l.path, now, now)
			}
		}
	}()
}

// Release stops the heartbeat and removes the lock file. Safe to call twice.
func (l *RunLock) Release() error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		l.wg.Wait()
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}
