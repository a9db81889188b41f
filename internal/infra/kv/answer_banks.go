package kv

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/domain"
)

// AnswerBanks stores question banks under answersDatabase and the per-grade
// book lists under booksDatabase.
type AnswerBanks struct {
	store        Store
	log          *logrus.Logger
	seedDefaults bool

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewAnswerBanks returns a repository over store. With seedDefaults an empty
// catalogue is replaced by domain.DefaultCatalogue on first read.
func NewAnswerBanks(store Store, log *logrus.Logger, seedDefaults bool) *AnswerBanks {
	return &AnswerBanks{store: store, log: orStandard(log), seedDefaults: seedDefaults}
}

func (r *AnswerBanks) Get(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error) {
	banks, err := r.loadBanks(ctx)
	if err != nil {
		return domain.QuestionBank{}, err
	}
	bank, ok := banks[key.String()]
	if !ok {
		return domain.QuestionBank{}, domain.ErrBankNotFound
	}
	return bank, nil
}

// Set stores bank and lists the book under its grade.
func (r *AnswerBanks) Set(ctx context.Context, key domain.BookKey, bank domain.QuestionBank) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	books, err := r.loadCatalogue(ctx, false)
	if err != nil {
		return err
	}
	banks, err := r.loadBanks(ctx)
	if err != nil {
		return err
	}

	banks[key.String()] = bank.Clone()
	if !contains(books[key.Grade], key.Book) {
		books[key.Grade] = append(books[key.Grade], key.Book)
	}
	return r.commit(ctx, books, banks)
}

// Delete removes the book from its grade list and drops its bank in one commit.
func (r *AnswerBanks) Delete(ctx context.Context, key domain.BookKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	books, err := r.loadCatalogue(ctx, false)
	if err != nil {
		return err
	}
	banks, err := r.loadBanks(ctx)
	if err != nil {
		return err
	}

	_, hadBank := banks[key.String()]
	listed := contains(books[key.Grade], key.Book)
	if !hadBank && !listed {
		return domain.ErrBankNotFound
	}

	delete(banks, key.String())
	if listed {
		remaining := make([]string, 0, len(books[key.Grade]))
		for _, b := range books[key.Grade] {
			if b != key.Book {
				remaining = append(remaining, b)
			}
		}
		books[key.Grade] = remaining
	}
	return r.commit(ctx, books, banks)
}

// ListBooks returns the grade's books in insertion order.
func (r *AnswerBanks) ListBooks(ctx context.Context, grade string) ([]string, error) {
	books, err := r.Catalogue(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{}, books[grade]...), nil
}

func (r *AnswerBanks) Catalogue(ctx context.Context) (domain.Catalogue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadCatalogue(ctx, true)
}

// Snapshot returns both collections as persisted.
func (r *AnswerBanks) Snapshot(ctx context.Context) (domain.Catalogue, map[string]domain.QuestionBank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	books, err := r.loadCatalogue(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	banks, err := r.loadBanks(ctx)
	if err != nil {
		return nil, nil, err
	}
	return books, banks, nil
}

// Replace overwrites both collections in one commit.
func (r *AnswerBanks) Replace(ctx context.Context, catalogue domain.Catalogue, banks map[string]domain.QuestionBank) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if catalogue == nil {
		catalogue = domain.Catalogue{}
	}
	if banks == nil {
		banks = map[string]domain.QuestionBank{}
	}
	return r.commit(ctx, catalogue, banks)
}

func (r *AnswerBanks) commit(ctx context.Context, books domain.Catalogue, banks map[string]domain.QuestionBank) error {
	booksJSON, err := encode(KeyBooks, books)
	if err != nil {
		return err
	}
	banksJSON, err := encode(KeyAnswers, banks)
	if err != nil {
		return err
	}
	return r.store.Commit(ctx, map[string]string{
		KeyBooks:   booksJSON,
		KeyAnswers: banksJSON,
	}, nil)
}

// loadCatalogue seeds an empty catalogue when enabled. Mutating callers pass
// persist=false and write the seeded lists in their own commit.
func (r *AnswerBanks) loadCatalogue(ctx context.Context, persist bool) (domain.Catalogue, error) {
	var books domain.Catalogue
	ok, err := loadJSON(ctx, r.store, r.log, KeyBooks, &books)
	if err != nil {
		return nil, err
	}
	if !ok || books == nil {
		books = domain.Catalogue{}
	}
	if !books.HasBooks() && r.seedDefaults {
		books = domain.DefaultCatalogue()
		if !persist {
			return books, nil
		}
		raw, err := encode(KeyBooks, books)
		if err != nil {
			return nil, err
		}
		if err := r.store.SetItem(ctx, KeyBooks, raw); err != nil {
			return nil, err
		}
		r.log.Info("seeded default book catalogue")
	}
	return books, nil
}

func (r *AnswerBanks) loadBanks(ctx context.Context) (map[string]domain.QuestionBank, error) {
	var banks map[string]domain.QuestionBank
	ok, err := loadJSON(ctx, r.store, r.log, KeyAnswers, &banks)
	if err != nil {
		return nil, err
	}
	if !ok || banks == nil {
		banks = map[string]domain.QuestionBank{}
	}
	return banks, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
