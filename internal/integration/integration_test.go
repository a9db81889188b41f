package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"reading-assessment-service/internal/app"
	"reading-assessment-service/internal/domain"
	"reading-assessment-service/internal/infra/kv"
	pgstore "reading-assessment-service/internal/infra/postgres"
	pgmigrations "reading-assessment-service/internal/infra/postgres/migrations"
	infraredis "reading-assessment-service/internal/infra/redis"
)

func TestAssessmentEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := pgstore.NewKVStore(pool)
	banks := kv.NewAnswerBanks(store, log, true)
	service := app.NewAssessmentService(app.Dependencies{
		Banks:   banks,
		Cache:   infraredis.NewBankCache(redisClient, banks, 5*time.Minute, log),
		History: kv.NewHistory(store, log),
		Reports: kv.NewReports(store, log, 0, 0),
		Sheets:  infraredis.NewSheetStore(redisClient, 5*time.Minute),
		Logger:  log,
	})

	key := domain.BookKey{Grade: "3", Book: "Fables"}
	if err := service.SaveBank(ctx, key, sampleBank(), false); err != nil {
		t.Fatalf("save bank: %v", err)
	}
	catalogue, err := service.Catalogue(ctx)
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	if len(catalogue["1"]) == 0 {
		t.Fatalf("expected default catalogue seeded, got %v", catalogue)
	}

	first, err := service.Submit(ctx, domain.Submission{StudentName: "Mia", Grade: "3", Book: "Fables", Answers: domain.StudentAnswers{0: "A", 1: "X", 2: "C"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Accuracy != 67 || first.Progress.HasHistory {
		t.Fatalf("unexpected first report %+v", first)
	}

	view, err := service.StartSheet(ctx, "Mia", key)
	if err != nil {
		t.Fatalf("start sheet: %v", err)
	}
	for i, choice := range []string{"A", "B", "C"} {
		if _, err := service.RecordAnswer(ctx, view.SheetID, i, choice); err != nil {
			t.Fatalf("record answer: %v", err)
		}
	}
	second, err := service.SubmitSheet(ctx, view.SheetID)
	if err != nil {
		t.Fatalf("submit sheet: %v", err)
	}
	if !second.Progress.HasHistory || second.Progress.PreviousID != first.RecordID || second.Progress.AccuracyChange != 33 {
		t.Fatalf("expected comparison with first attempt, got %+v", second.Progress)
	}

	if err := service.DeleteBook(ctx, key); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if _, err := service.Submit(ctx, domain.Submission{StudentName: "Mia", Grade: "3", Book: "Fables", Answers: domain.StudentAnswers{0: "A"}}); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected deleted bank to be gone from store and cache, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "reading", "POSTGRES_PASSWORD": "readingpass", "POSTGRES_DB": "assessment"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://reading:readingpass@%s:%s/assessment?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleBank() domain.QuestionBank {
	bank := domain.NewQuestionBank()
	for i, answer := range []string{"A", "B", "C"} {
		bank.Questions[i] = fmt.Sprintf("Question %d", i+1)
		bank.Answers[i] = answer
		bank.Options[i] = domain.Options{A: "one", B: "two", C: "three", D: "four"}
	}
	bank.Dimensions[2] = domain.GlobalPerception
	return bank
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
