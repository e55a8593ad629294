package storage

import (
	"context"
)

// Initer is optionally implemented by *T to fill zero-value fields
// (nil maps, nil slices) after loading or when the backing file is absent.
type Initer interface {
	Init()
}

// Warner is optionally implemented by *T to report problems that loading
// tolerated, such as legacy records it had to skip.
type Warner interface {
	Warnings() []string
}

// Store provides locked read/modify/write access to one collection.
// T is the top-level structure of the collection.
type Store[T any] interface {
	// With loads the data under lock and passes it to fn.
	// The lock is held for the duration of fn.
	With(ctx context.Context, fn func(*T) error) error
	// Update performs a read-modify-write under lock.
	// If fn returns nil the data is persisted; otherwise nothing is written.
	Update(ctx context.Context, fn func(*T) error) error

	// Read loads the data and passes it to fn without acquiring the lock.
	// The caller must already hold the lock via TryLock.
	Read(ctx context.Context, fn func(*T) error) error
	// Write is Update without acquiring the lock.
	// The caller must already hold the lock via TryLock.
	Write(ctx context.Context, fn func(*T) error) error
	// TryLock attempts to acquire the lock without blocking.
	// Returns (false, nil) if currently held by another caller.
	TryLock(ctx context.Context) (bool, error)
	// Unlock releases a lock previously acquired by TryLock.
	Unlock(ctx context.Context) error
}
