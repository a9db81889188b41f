package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"reading-assessment-service/internal/app"
)

// SheetStore is a Redis-aware implementation of app.SheetRepository.
// Sheets live in process so progress fan-out stays local. Redis carries a
// liveness marker per sheet; every lookup slides its TTL, and a sheet whose
// marker has expired is evicted.
type SheetStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
	sheets map[string]*app.AnswerSheet
}

func NewSheetStore(client *redis.Client, ttl time.Duration) *SheetStore {
	return &SheetStore{
		client: client,
		ttl:    ttl,
		sheets: make(map[string]*app.AnswerSheet),
	}
}

func (s *SheetStore) GetOrCreate(sheetID string, init app.SheetInit) *app.AnswerSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sheet, ok := s.sheets[sheetID]; ok && s.touch(sheetID) {
		return sheet
	}
	sheet := app.NewAnswerSheet(sheetID, init)
	s.sheets[sheetID] = sheet
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sheetID), init.Key.String(), s.ttl).Err()
	return sheet
}

func (s *SheetStore) Get(sheetID string) (*app.AnswerSheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet, ok := s.sheets[sheetID]
	if !ok {
		return nil, false
	}
	if !s.touch(sheetID) {
		delete(s.sheets, sheetID)
		return nil, false
	}
	return sheet, true
}

func (s *SheetStore) Delete(sheetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[sheetID]; !ok {
		return
	}
	delete(s.sheets, sheetID)
	_ = s.client.Del(context.Background(), s.key(sheetID)).Err()
}

// Sweep evicts every sheet whose marker has expired.
func (s *SheetStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.sheets {
		if !s.touch(id) {
			delete(s.sheets, id)
			removed++
		}
	}
	return removed
}

// touch extends the marker and reports whether it still existed. Redis
// errors keep the sheet alive.
func (s *SheetStore) touch(sheetID string) bool {
	alive, err := s.client.Expire(context.Background(), s.key(sheetID), s.ttl).Result()
	if err != nil {
		return true
	}
	return alive
}

func (s *SheetStore) key(sheetID string) string {
	return "sheet:" + sheetID
}
