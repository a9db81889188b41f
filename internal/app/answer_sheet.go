package app

import (
	"strings"
	"sync"
	"time"

	"reading-assessment-service/internal/domain"
)

// SheetInit describes the sheet to create when none exists yet.
type SheetInit struct {
	StudentName string
	Key         domain.BookKey
	Questions   []int
}

// SheetID is the identity of a student's in-progress sheet for one book.
func SheetID(studentName string, key domain.BookKey) string {
	return studentName + "|" + key.String()
}

// AnswerSheet collects a student's answers before submission and fans progress
// snapshots out to watchers.
type AnswerSheet struct {
	id          string
	studentName string
	key         domain.BookKey
	createdAt   time.Time
	now         func() time.Time

	mu          sync.RWMutex
	questions   map[int]struct{}
	answers     domain.StudentAnswers
	updatedAt   time.Time
	subscribers map[chan domain.SheetProgress]struct{}
}

// NewAnswerSheet is exported for infrastructure layers that need to seed sheets.
func NewAnswerSheet(id string, init SheetInit) *AnswerSheet {
	return NewAnswerSheetWithClock(id, init, time.Now)
}

// NewAnswerSheetWithClock allows deterministic timestamps in tests.
func NewAnswerSheetWithClock(id string, init SheetInit, now func() time.Time) *AnswerSheet {
	questions := make(map[int]struct{}, len(init.Questions))
	for _, i := range init.Questions {
		questions[i] = struct{}{}
	}
	created := now()
	return &AnswerSheet{
		id:          id,
		studentName: init.StudentName,
		key:         init.Key,
		createdAt:   created,
		now:         now,
		questions:   questions,
		answers:     make(domain.StudentAnswers),
		updatedAt:   created,
		subscribers: make(map[chan domain.SheetProgress]struct{}),
	}
}

// ID returns the sheet identity.
func (s *AnswerSheet) ID() string {
	return s.id
}

// CreatedAt returns when the sheet was started.
func (s *AnswerSheet) CreatedAt() time.Time {
	return s.createdAt
}

func (s *AnswerSheet) record(index int, choice string) (domain.SheetProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[index]; !ok {
		return domain.SheetProgress{}, domain.ErrQuestionNotFound
	}
	choice = strings.ToUpper(strings.TrimSpace(choice))
	if choice == "" {
		delete(s.answers, index)
	} else {
		s.answers[index] = choice
	}
	s.updatedAt = s.now()
	return s.broadcastLocked(), nil
}

func (s *AnswerSheet) submission() domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	answers := make(domain.StudentAnswers, len(s.answers))
	for i, v := range s.answers {
		answers[i] = v
	}
	return domain.Submission{
		StudentName: s.studentName,
		Grade:       s.key.Grade,
		Book:        s.key.Book,
		Answers:     answers,
	}
}

// Progress returns the current snapshot.
func (s *AnswerSheet) Progress() domain.SheetProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *AnswerSheet) subscribe() (<-chan domain.SheetProgress, func()) {
	ch := make(chan domain.SheetProgress, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *AnswerSheet) broadcastLocked() domain.SheetProgress {
	progress := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- progress:
		default:
			// Drop the stale snapshot so a slow watcher never blocks answering.
			select {
			case <-ch:
			default:
			}
			ch <- progress
		}
	}
	return progress
}

func (s *AnswerSheet) snapshotLocked() domain.SheetProgress {
	return domain.SheetProgress{
		SheetID:     s.id,
		StudentName: s.studentName,
		Grade:       s.key.Grade,
		Book:        s.key.Book,
		Answered:    len(s.answers),
		Total:       len(s.questions),
		UpdatedAt:   s.updatedAt,
	}
}
