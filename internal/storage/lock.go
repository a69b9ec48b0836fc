package storage

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
)

// lockRetryDelay is how often a waiting process polls a held lock file.
const lockRetryDelay = 25 * time.Millisecond

// lockFile takes an exclusive advisory lock on path, creating the file when
// needed. Each call opens its own handle so concurrent callers in one
// process exclude each other the same way separate processes do.
func lockFile(ctx context.Context, path string) (func() error, error) {
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, serrors.StorageFailure("lock", err).WithContext("path", path)
	}
	if !ok {
		return nil, serrors.StorageFailure("lock", ctx.Err()).WithContext("path", path)
	}
	return fl.Unlock, nil
}
