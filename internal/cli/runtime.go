package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/app"
	"reading-assessment-service/internal/config"
	"reading-assessment-service/internal/infra/kv"
	"reading-assessment-service/internal/infra/memory"
	pgstore "reading-assessment-service/internal/infra/postgres"
	redisstore "reading-assessment-service/internal/infra/redis"
	"reading-assessment-service/internal/infra/sqlite"
)

const defaultSQLitePath = "data/assessment.db"

// runtime is the wired service plus whatever must be closed on exit.
type runtime struct {
	cfg      config.Config
	log      *logrus.Logger
	service  *app.AssessmentService
	sheets   sheetSweeper
	sheetTTL time.Duration
	closers  []func()
}

type sheetSweeper interface {
	Sweep() int
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func loadRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newRuntime(ctx, cfg)
}

func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: cfg.NewLogger()}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	store, err := rt.openStore(ctx, redisClient)
	if err != nil {
		rt.Close()
		return nil, err
	}

	banks := kv.NewAnswerBanks(store, rt.log, cfg.Store.SeedDefaults)
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)

	rt.sheetTTL = config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var cache app.BankCache
	var sheets interface {
		app.SheetRepository
		sheetSweeper
	}
	if redisClient != nil {
		cache = redisstore.NewBankCache(redisClient, banks, cacheTTL, rt.log)
		sheets = redisstore.NewSheetStore(redisClient, rt.sheetTTL)
	} else {
		cache = memory.NewBankCache(banks, cacheTTL)
		sheets = memory.NewSheetStore(rt.sheetTTL)
	}
	rt.sheets = sheets

	rt.service = app.NewAssessmentService(app.Dependencies{
		Banks:   banks,
		Cache:   cache,
		History: kv.NewHistory(store, rt.log),
		Reports: kv.NewReports(store, rt.log, cfg.Reports.MaxShared, config.TTLDuration(cfg.Reports.Expiry, kv.DefaultReportExpiry)),
		Sheets:  sheets,
		Logger:  rt.log,
	})
	return rt, nil
}

// sweepSheets evicts abandoned answer sheets until ctx is done.
func (rt *runtime) sweepSheets(ctx context.Context) {
	interval := rt.sheetTTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rt.sheets.Sweep(); n > 0 {
				rt.log.WithField("sheets", n).Info("evicted idle answer sheets")
			}
		}
	}
}

func (rt *runtime) openStore(ctx context.Context, redisClient *redis.Client) (kv.Store, error) {
	backend := rt.cfg.Backend()
	rt.log.WithField("backend", backend).Info("opening store")

	switch backend {
	case config.BackendMemory:
		return memory.NewKVStore(), nil
	case config.BackendSQLite:
		path := rt.cfg.Store.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		return store, nil
	case config.BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend selected but redis.addr not configured")
		}
		return redisstore.NewKVStore(redisClient, rt.cfg.Redis.KeyPrefix), nil
	case config.BackendPostgres:
		if err := runMigrationsWithConfig(ctx, rt.cfg, rt.log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, rt.cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		return pgstore.NewKVStore(pool), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
