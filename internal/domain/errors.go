package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBankNotFound is returned when no question bank exists for a grade/book.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrRecordNotFound is returned when a history record id is unknown.
	ErrRecordNotFound = errors.New("history record not found")
	// ErrReportNotFound indicates a shared report expired or never existed.
	ErrReportNotFound = errors.New("shared report not found")
	// ErrInvalidGrade rejects empty grades and grades containing '-'.
	ErrInvalidGrade = errors.New("invalid grade")
	// ErrInvalidBook rejects empty book titles.
	ErrInvalidBook = errors.New("invalid book")
	// ErrMissingStudent is returned when a submission has no student name.
	ErrMissingStudent = errors.New("student name is required")
	// ErrEmptyAnswers is returned when a submission answers nothing.
	ErrEmptyAnswers = errors.New("at least one question must be answered")
	// ErrInvalidBundle rejects interchange documents missing booksDatabase or answersDatabase.
	ErrInvalidBundle = errors.New("invalid data bundle")
	// ErrSheetNotFound is returned when an answer sheet has not been started.
	ErrSheetNotFound = errors.New("answer sheet not found")
	// ErrTooManyQuestions rejects banks with more than MaxQuestions slots.
	ErrTooManyQuestions = fmt.Errorf("question bank exceeds %d questions", MaxQuestions)
	// ErrQuestionNotFound indicates an answer was recorded for a missing question.
	ErrQuestionNotFound = errors.New("question not found")
)

// AnomalyError lists partial rows that need confirmation before a bank is saved.
type AnomalyError struct {
	Key       BookKey
	Anomalies []Anomaly
}

func (e *AnomalyError) Error() string {
	parts := make([]string, 0, len(e.Anomalies))
	for _, a := range e.Anomalies {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("question bank %s needs confirmation: %s", e.Key, strings.Join(parts, "; "))
}
