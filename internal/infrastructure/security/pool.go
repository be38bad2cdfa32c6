package security

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// PoolHasher bounds how many bcrypt computations run at once. Each call
// runs on the caller's goroutine once it holds a slot, so slow hashes never
// queue other requests behind a shared lock, and a cancelled request stops
// waiting for a slot.
type PoolHasher struct {
	inner *BcryptHasher
	sem   *semaphore.Weighted
	size  int64
}

func NewPoolHasher(inner *BcryptHasher, workers int) *PoolHasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &PoolHasher{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(workers)),
		size:  int64(workers),
	}
}

func (p *PoolHasher) Workers() int { return int(p.size) }

func (p *PoolHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", domain.ErrHashFailed(err)
	}
	defer p.sem.Release(1)

	return p.inner.Hash(password)
}

func (p *PoolHasher) Compare(ctx context.Context, hash string, password string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return domain.ErrHashFailed(err)
	}
	defer p.sem.Release(1)

	return p.inner.Compare(hash, password)
}
