package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/lock"
	"github.com/projecteru2/vpsbot/lock/flock"
	"github.com/projecteru2/vpsbot/storage"
	"github.com/projecteru2/vpsbot/utils"
)

var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

// Store keeps one collection as an indented JSON document guarded by a
// sidecar flock file. A missing document loads as the zero value; a document
// that does not parse is set aside as <file>.corrupt-<unix> and treated as
// empty, so one bad write never takes the service down.
type Store[T any] struct {
	filePath string
	locker   lock.Locker
}

// New creates a Store for filePath guarded by the lock file at lockPath.
func New[T any](lockPath, filePath string) *Store[T] {
	return &Store[T]{filePath: filePath, locker: flock.New(lockPath)}
}

// Path returns the data file path.
func (s *Store[T]) Path() string { return s.filePath }

// With loads the document under lock and passes it to fn.
func (s *Store[T]) With(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		return s.Read(ctx, fn)
	})
}

// Update performs a read-modify-write under lock.
func (s *Store[T]) Update(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		return s.Write(ctx, fn)
	})
}

// Read loads the document without locking.
func (s *Store[T]) Read(ctx context.Context, fn func(*T) error) error {
	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(data)
}

// Write loads, applies fn and saves atomically without locking.
func (s *Store[T]) Write(ctx context.Context, fn func(*T) error) error {
	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	if err := utils.AtomicWriteJSON(s.filePath, data); err != nil {
		return fmt.Errorf("save %s: %w", s.filePath, err)
	}
	return nil
}

// TryLock attempts to take the collection lock without blocking.
func (s *Store[T]) TryLock(ctx context.Context) (bool, error) {
	return s.locker.TryLock(ctx)
}

// Unlock releases a lock taken with TryLock.
func (s *Store[T]) Unlock(ctx context.Context) error {
	return s.locker.Unlock(ctx)
}

func (s *Store[T]) load(ctx context.Context) (*T, error) {
	logger := log.WithFunc("json.load")
	data := new(T)
	raw, err := os.ReadFile(s.filePath)
	switch {
	case os.IsNotExist(err):
		initData(data)
		return data, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", s.filePath, err)
	}
	if err := json.Unmarshal(raw, data); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", s.filePath, time.Now().Unix())
		if renameErr := os.Rename(s.filePath, aside); renameErr != nil {
			logger.Warnf(ctx, "set aside unparsable %s: %v", s.filePath, renameErr)
		}
		logger.Warnf(ctx, "parse %s: %v, starting fresh (old file kept as %s)", s.filePath, err, aside)
		data = new(T)
		initData(data)
		return data, nil
	}
	initData(data)
	if w, ok := any(data).(storage.Warner); ok {
		for _, msg := range w.Warnings() {
			logger.Warnf(ctx, "%s: %s", s.filePath, msg)
		}
	}
	return data, nil
}

func initData[T any](data *T) {
	if initer, ok := any(data).(storage.Initer); ok {
		initer.Init()
	}
}
