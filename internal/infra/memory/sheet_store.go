package memory

import (
	"sync"
	"time"

	"reading-assessment-service/internal/app"
)

// SheetStore is an in-memory implementation of app.SheetRepository.
// Sheets untouched for longer than idle are evicted on their next lookup;
// idle <= 0 keeps them for the life of the process.
type SheetStore struct {
	mu     sync.RWMutex
	idle   time.Duration
	clock  func() time.Time
	sheets map[string]*sheetEntry
}

type sheetEntry struct {
	sheet    *app.AnswerSheet
	lastSeen time.Time
}

func NewSheetStore(idle time.Duration) *SheetStore {
	return &SheetStore{
		idle:   idle,
		clock:  time.Now,
		sheets: make(map[string]*sheetEntry),
	}
}

func (s *SheetStore) GetOrCreate(sheetID string, init app.SheetInit) *app.AnswerSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if entry, ok := s.sheets[sheetID]; ok && !s.expiredLocked(entry, now) {
		entry.lastSeen = now
		return entry.sheet
	}
	sheet := app.NewAnswerSheet(sheetID, init)
	s.sheets[sheetID] = &sheetEntry{sheet: sheet, lastSeen: now}
	return sheet
}

func (s *SheetStore) Get(sheetID string) (*app.AnswerSheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sheets[sheetID]
	if !ok {
		return nil, false
	}
	now := s.clock()
	if s.expiredLocked(entry, now) {
		delete(s.sheets, sheetID)
		return nil, false
	}
	entry.lastSeen = now
	return entry.sheet, true
}

func (s *SheetStore) Delete(sheetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sheets, sheetID)
}

// Sweep drops every expired sheet and reports how many were removed.
func (s *SheetStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	removed := 0
	for id, entry := range s.sheets {
		if s.expiredLocked(entry, now) {
			delete(s.sheets, id)
			removed++
		}
	}
	return removed
}

func (s *SheetStore) expiredLocked(entry *sheetEntry, now time.Time) bool {
	return s.idle > 0 && now.Sub(entry.lastSeen) > s.idle
}
