package kv

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/domain"
)

// History stores assessment records as one collection under historyRecords.
type History struct {
	store Store
	log   *logrus.Logger

	mu     sync.Mutex
	lastID int64
}

func NewHistory(store Store, log *logrus.Logger) *History {
	return &History{store: store, log: orStandard(log)}
}

// Append stores record. Its ID is kept when it is newer than every id seen so
// far; otherwise it is bumped past the newest, so ids stay unique and ordered.
func (h *History) Append(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.load(ctx)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	newest := h.lastID
	for _, r := range records {
		if r.ID > newest {
			newest = r.ID
		}
	}
	if record.ID <= newest {
		record.ID = newest + 1
	}

	records = append(records, record)
	if err := h.save(ctx, records); err != nil {
		return domain.HistoryRecord{}, err
	}
	h.lastID = record.ID
	return record, nil
}

func (h *History) Get(ctx context.Context, id int64) (domain.HistoryRecord, error) {
	records, err := h.load(ctx)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.HistoryRecord{}, domain.ErrRecordNotFound
}

func (h *History) Delete(ctx context.Context, id int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.load(ctx)
	if err != nil {
		return err
	}
	kept := records[:0]
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return domain.ErrRecordNotFound
	}
	return h.save(ctx, kept)
}

// List returns all records, newest first.
func (h *History) List(ctx context.Context) ([]domain.HistoryRecord, error) {
	records, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})
	return records, nil
}

// ForStudent returns the records of one student/grade/book in stored order.
func (h *History) ForStudent(ctx context.Context, studentName, grade, book string) ([]domain.HistoryRecord, error) {
	records, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HistoryRecord, 0)
	for _, r := range records {
		if r.Matches(studentName, grade, book) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (h *History) load(ctx context.Context) ([]domain.HistoryRecord, error) {
	var records []domain.HistoryRecord
	ok, err := loadJSON(ctx, h.store, h.log, KeyHistory, &records)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.HistoryRecord{}, nil
	}
	return records, nil
}

func (h *History) save(ctx context.Context, records []domain.HistoryRecord) error {
	raw, err := encode(KeyHistory, records)
	if err != nil {
		return err
	}
	return h.store.SetItem(ctx, KeyHistory, raw)
}
