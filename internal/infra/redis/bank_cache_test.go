package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"reading-assessment-service/internal/domain"
)

func TestBankCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	key := domain.BookKey{Grade: "3", Book: "Fables"}
	loader := &countingLoader{banks: map[string]domain.QuestionBank{key.String(): sampleBank()}}
	cache := NewBankCache(newClient(mr), loader, time.Minute, nil)

	bank, err := cache.GetBank(context.Background(), key)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if bank.Answers[0] != "A" {
		t.Fatalf("unexpected answer %q", bank.Answers[0])
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("bank:3-Fables") {
		t.Fatalf("expected bank cached in redis")
	}
	if ttl := mr.TTL("bank:3-Fables"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected jittered ttl, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	bank, _ = cache.GetBank(context.Background(), key)
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if bank.Questions[0] != "Who is the main character?" || bank.Options[0].B != "Crow" {
		t.Fatalf("cached bank lost content: %+v", bank)
	}

	cache.Invalidate(context.Background(), key)
	if mr.Exists("bank:3-Fables") {
		t.Fatalf("expected cache entry removed")
	}
	_, _ = cache.GetBank(context.Background(), key)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	banks map[string]domain.QuestionBank
	calls int
}

func (l *countingLoader) Get(_ context.Context, key domain.BookKey) (domain.QuestionBank, error) {
	l.calls++
	if bank, ok := l.banks[key.String()]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrBankNotFound
}

func sampleBank() domain.QuestionBank {
	bank := domain.NewQuestionBank()
	bank.Questions[0] = "Who is the main character?"
	bank.Options[0] = domain.Options{A: "Fox", B: "Crow", C: "Bear", D: "Wolf"}
	bank.Answers[0] = "A"
	return bank
}
