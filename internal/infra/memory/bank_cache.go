package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"reading-assessment-service/internal/domain"
)

// BankLoader fetches a question bank from the backing repository.
type BankLoader interface {
	Get(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error)
}

// BankCache caches question banks with TTL to avoid re-decoding the whole
// answers collection on every submission.
type BankCache struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func NewBankCache(loader BankLoader, ttl time.Duration) *BankCache {
	return &BankCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (c *BankCache) GetBank(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error) {
	id := key.String()
	if bank, ok := c.lookup(id); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		if bank, ok := c.lookup(id); ok {
			return bank, nil
		}
		bank, err := c.loader.Get(ctx, key)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedBank{
			bank:      bank,
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank).Clone(), nil
}

func (c *BankCache) Invalidate(_ context.Context, key domain.BookKey) {
	c.mu.Lock()
	delete(c.cache, key.String())
	c.mu.Unlock()
	c.sf.Forget(key.String())
}

func (c *BankCache) lookup(id string) (domain.QuestionBank, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[id]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuestionBank{}, false
	}
	return entry.bank.Clone(), true
}

func (c *BankCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
