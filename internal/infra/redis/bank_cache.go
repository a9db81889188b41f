package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"reading-assessment-service/internal/domain"
)

// BankLoader fetches a question bank from the backing repository.
type BankLoader interface {
	Get(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error)
}

// BankCache caches question banks in Redis and falls back to a loader on miss.
// Banks are stored as: SET bank:{grade}-{book} {bank JSON} EX ttl
type BankCache struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	log    *logrus.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBankCache(client *redis.Client, loader BankLoader, ttl time.Duration, log *logrus.Logger) *BankCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BankCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) GetBank(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error) {
	cacheKey := c.bankKey(key)
	if bank, ok := c.cached(ctx, cacheKey); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(cacheKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := c.cached(ctx, cacheKey); ok {
			return bank, nil
		}

		bank, err := c.loader.Get(ctx, key)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		data, err := json.Marshal(bank)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		if err := c.client.Set(ctx, cacheKey, data, c.ttlWithJitter()).Err(); err != nil {
			c.log.WithError(err).WithField("book", key.String()).Warn("bank cache fill failed")
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank).Clone(), nil
}

func (c *BankCache) Invalidate(ctx context.Context, key domain.BookKey) {
	if err := c.client.Del(ctx, c.bankKey(key)).Err(); err != nil {
		c.log.WithError(err).WithField("book", key.String()).Warn("bank cache invalidate failed")
	}
}

func (c *BankCache) cached(ctx context.Context, cacheKey string) (domain.QuestionBank, bool) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return domain.QuestionBank{}, false
	}
	return bank, true
}

func (c *BankCache) bankKey(key domain.BookKey) string {
	return "bank:" + key.String()
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
