package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/errors"
)

// Lock is an advisory lock on a directory.
type Lock struct {
	lock *flock.Flock
}

func newLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	return &Lock{lock: flock.New(filepath.Join(dir, constants.LockFileName))}, nil
}

// TryLock locks dir or returns ErrLocked when another run holds it.
func TryLock(dir string) (*Lock, error) {
	l, err := newLock(dir)
	if err != nil {
		return nil, err
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, errors.WrapIO("lock", l.lock.Path(), err)
	}
	if !ok {
		return nil, errors.ErrLocked
	}
	return l, nil
}

// WaitLock retries until dir is locked or ctx is done.
func WaitLock(ctx context.Context, dir string, retry time.Duration) (*Lock, error) {
	l, err := newLock(dir)
	if err != nil {
		return nil, err
	}
	ok, err := l.lock.TryLockContext(ctx, retry)
	if err != nil {
		return nil, errors.WrapIO("lock", l.lock.Path(), err)
	}
	if !ok {
		return nil, errors.ErrLocked
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.lock.Path()
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		return errors.WrapIO("unlock", l.lock.Path(), err)
	}
	return nil
}
