package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/domain"
	"reading-assessment-service/internal/importer"
	"reading-assessment-service/internal/metrics"
)

// BankRepository owns question banks and the per-grade book lists.
type BankRepository interface {
	Get(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error)
	Set(ctx context.Context, key domain.BookKey, bank domain.QuestionBank) error
	Delete(ctx context.Context, key domain.BookKey) error
	ListBooks(ctx context.Context, grade string) ([]string, error)
	Catalogue(ctx context.Context) (domain.Catalogue, error)
	Snapshot(ctx context.Context) (domain.Catalogue, map[string]domain.QuestionBank, error)
	Replace(ctx context.Context, catalogue domain.Catalogue, banks map[string]domain.QuestionBank) error
}

// BankCache serves banks on the scoring path (in-memory, Redis, etc).
type BankCache interface {
	GetBank(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error)
	Invalidate(ctx context.Context, key domain.BookKey)
}

// HistoryRepository stores completed assessment records.
type HistoryRepository interface {
	// Append assigns the record a unique, monotonic id and stores it.
	Append(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error)
	Get(ctx context.Context, id int64) (domain.HistoryRecord, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.HistoryRecord, error)
	ForStudent(ctx context.Context, studentName, grade, book string) ([]domain.HistoryRecord, error)
}

// ReportRepository stores shared report snapshots.
type ReportRepository interface {
	Save(ctx context.Context, report domain.Report, createdAt time.Time) (domain.SharedReport, error)
	Get(ctx context.Context, id string) (domain.SharedReport, error)
	List(ctx context.Context) ([]domain.SharedReportSummary, error)
}

// SheetRepository abstracts how answer sheets are held (in-memory, Redis, etc).
type SheetRepository interface {
	GetOrCreate(sheetID string, init SheetInit) *AnswerSheet
	Get(sheetID string) (*AnswerSheet, bool)
	Delete(sheetID string)
}

// Dependencies wires the repositories behind an AssessmentService. Cache and
// Sheets are optional.
type Dependencies struct {
	Banks   BankRepository
	Cache   BankCache
	History HistoryRepository
	Reports ReportRepository
	Sheets  SheetRepository
	Logger  *logrus.Logger
	Now     func() time.Time
}

// AssessmentService contains the assessment use cases.
type AssessmentService struct {
	banks   BankRepository
	cache   BankCache
	history HistoryRepository
	reports ReportRepository
	sheets  SheetRepository
	log     *logrus.Logger
	now     func() time.Time
}

func NewAssessmentService(deps Dependencies) *AssessmentService {
	s := &AssessmentService{
		banks:   deps.Banks,
		cache:   deps.Cache,
		history: deps.History,
		reports: deps.Reports,
		sheets:  deps.Sheets,
		log:     deps.Logger,
		now:     deps.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Submit scores a submission, records it in history and builds the report.
// The history record is stored before progress is analysed; the analysis
// excludes it by id.
func (s *AssessmentService) Submit(ctx context.Context, sub domain.Submission) (domain.Report, error) {
	if strings.TrimSpace(sub.StudentName) == "" {
		return domain.Report{}, domain.ErrMissingStudent
	}
	key := sub.Key()
	if err := key.Validate(); err != nil {
		return domain.Report{}, err
	}
	if len(sub.Answers) == 0 {
		return domain.Report{}, domain.ErrEmptyAnswers
	}

	bank, err := s.loadBank(ctx, key)
	if err != nil {
		return domain.Report{}, err
	}
	result := Evaluate(sub.Answers, bank)

	now := s.now()
	record, err := s.history.Append(ctx, domain.NewHistoryRecord(now.UnixMilli(), now, sub.StudentName, key, result))
	if err != nil {
		return domain.Report{}, fmt.Errorf("save history: %w", err)
	}
	prior, err := s.history.ForStudent(ctx, sub.StudentName, key.Grade, key.Book)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load history: %w", err)
	}
	progress := AnalyzeProgress(sub.StudentName, key.Grade, key.Book, record.ID, result, prior)

	report := BuildReport(sub.StudentName, key, record.Date, result, progress)
	report.RecordID = record.ID

	metrics.ObserveAssessment(key.Grade, report.Accuracy)
	s.log.WithFields(logrus.Fields{
		"student":  sub.StudentName,
		"book":     key.String(),
		"accuracy": report.Accuracy,
		"record":   record.ID,
	}).Info("assessment submitted")
	return report, nil
}

func (s *AssessmentService) loadBank(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error) {
	if s.cache != nil {
		return s.cache.GetBank(ctx, key)
	}
	return s.banks.Get(ctx, key)
}

// History lists stored records, newest first.
func (s *AssessmentService) History(ctx context.Context) ([]domain.HistoryRecord, error) {
	return s.history.List(ctx)
}

// ViewHistory rebuilds the summary report of a stored record.
func (s *AssessmentService) ViewHistory(ctx context.Context, id int64) (domain.Report, error) {
	record, err := s.history.Get(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}
	return ReportFromRecord(record), nil
}

func (s *AssessmentService) DeleteHistory(ctx context.Context, id int64) error {
	if err := s.history.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("record", id).Info("history record deleted")
	return nil
}

// ShareReport stores a self-contained snapshot and returns its handle.
func (s *AssessmentService) ShareReport(ctx context.Context, report domain.Report) (domain.SharedReport, error) {
	if strings.TrimSpace(report.StudentName) == "" {
		return domain.SharedReport{}, domain.ErrMissingStudent
	}
	shared, err := s.reports.Save(ctx, report, s.now())
	if err != nil {
		return domain.SharedReport{}, err
	}
	s.log.WithField("report", shared.ID).Info("report shared")
	return shared, nil
}

func (s *AssessmentService) SharedReport(ctx context.Context, id string) (domain.SharedReport, error) {
	return s.reports.Get(ctx, id)
}

func (s *AssessmentService) SharedReports(ctx context.Context) ([]domain.SharedReportSummary, error) {
	return s.reports.List(ctx)
}

// Bank returns the stored bank for administration.
func (s *AssessmentService) Bank(ctx context.Context, key domain.BookKey) (domain.QuestionBank, error) {
	if err := key.Validate(); err != nil {
		return domain.QuestionBank{}, err
	}
	return s.banks.Get(ctx, key)
}

// SaveBank stores a bank. Partial slots are returned as *domain.AnomalyError
// unless force confirms them.
func (s *AssessmentService) SaveBank(ctx context.Context, key domain.BookKey, bank domain.QuestionBank, force bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if bank.Len() > domain.MaxQuestions {
		return domain.ErrTooManyQuestions
	}
	if anomalies := bank.Anomalies(); len(anomalies) > 0 && !force {
		return &domain.AnomalyError{Key: key, Anomalies: anomalies}
	}
	if err := s.banks.Set(ctx, key, bank); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	s.log.WithFields(logrus.Fields{"book": key.String(), "slots": bank.Len()}).Info("question bank saved")
	return nil
}

// DeleteBook removes a book from its grade list together with its bank.
func (s *AssessmentService) DeleteBook(ctx context.Context, key domain.BookKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.banks.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	s.log.WithField("book", key.String()).Info("book deleted")
	return nil
}

func (s *AssessmentService) ListBooks(ctx context.Context, grade string) ([]string, error) {
	return s.banks.ListBooks(ctx, grade)
}

func (s *AssessmentService) Catalogue(ctx context.Context) (domain.Catalogue, error) {
	return s.banks.Catalogue(ctx)
}

// ImportRows normalizes tabular rows into a bank and saves it.
func (s *AssessmentService) ImportRows(ctx context.Context, key domain.BookKey, rows []importer.Row, force bool) (domain.QuestionBank, error) {
	bank, err := importer.Normalize(rows, importer.DefaultAliases())
	if err != nil {
		metrics.ObserveImport("rejected")
		return domain.QuestionBank{}, err
	}
	if err := s.SaveBank(ctx, key, bank, force); err != nil {
		metrics.ObserveImport("rejected")
		return domain.QuestionBank{}, err
	}
	metrics.ObserveImport("imported")
	return bank, nil
}

// ImportReader reads a CSV or XLSX document and imports it under key.
func (s *AssessmentService) ImportReader(ctx context.Context, key domain.BookKey, r io.Reader, format importer.Format, force bool) (domain.QuestionBank, error) {
	rows, err := importer.Read(r, format)
	if err != nil {
		metrics.ObserveImport("unreadable")
		return domain.QuestionBank{}, err
	}
	return s.ImportRows(ctx, key, rows, force)
}

// ImportFile imports a spreadsheet named "{grade}-{book}.{csv|xlsx}".
func (s *AssessmentService) ImportFile(ctx context.Context, path string, force bool) (domain.BookKey, domain.QuestionBank, error) {
	key, err := importer.ParseFileName(filepath.Base(path))
	if err != nil {
		return domain.BookKey{}, domain.QuestionBank{}, err
	}
	rows, err := importer.ReadFile(path)
	if err != nil {
		metrics.ObserveImport("unreadable")
		return key, domain.QuestionBank{}, err
	}
	bank, err := s.ImportRows(ctx, key, rows, force)
	return key, bank, err
}

// ExportData produces the bulk interchange document.
func (s *AssessmentService) ExportData(ctx context.Context) (domain.DataBundle, error) {
	catalogue, banks, err := s.banks.Snapshot(ctx)
	if err != nil {
		return domain.DataBundle{}, err
	}
	return domain.DataBundle{
		BooksDatabase:   catalogue,
		AnswersDatabase: banks,
		ExportTime:      s.now().UTC().Format(time.RFC3339),
		Version:         domain.BundleVersion,
	}, nil
}

// ImportData replaces the catalogue and all banks from an interchange
// document. Documents missing either collection are rejected whole.
func (s *AssessmentService) ImportData(ctx context.Context, raw []byte) (int, error) {
	var envelope struct {
		BooksDatabase   json.RawMessage `json:"booksDatabase"`
		AnswersDatabase json.RawMessage `json:"answersDatabase"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidBundle, err)
	}
	if isAbsent(envelope.BooksDatabase) || isAbsent(envelope.AnswersDatabase) {
		return 0, fmt.Errorf("%w: booksDatabase and answersDatabase are required", domain.ErrInvalidBundle)
	}

	var catalogue domain.Catalogue
	if err := json.Unmarshal(envelope.BooksDatabase, &catalogue); err != nil {
		return 0, fmt.Errorf("%w: booksDatabase: %v", domain.ErrInvalidBundle, err)
	}
	var banks map[string]domain.QuestionBank
	if err := json.Unmarshal(envelope.AnswersDatabase, &banks); err != nil {
		return 0, fmt.Errorf("%w: answersDatabase: %v", domain.ErrInvalidBundle, err)
	}
	for name, bank := range banks {
		if _, err := domain.ParseBookKey(name); err != nil {
			return 0, fmt.Errorf("%w: bank key %q: %v", domain.ErrInvalidBundle, name, err)
		}
		if bank.Len() > domain.MaxQuestions {
			return 0, fmt.Errorf("%w: bank %q: %v", domain.ErrInvalidBundle, name, domain.ErrTooManyQuestions)
		}
	}

	_, previous, err := s.banks.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.banks.Replace(ctx, catalogue, banks); err != nil {
		return 0, err
	}
	for name := range previous {
		s.invalidateRaw(ctx, name)
	}
	for name := range banks {
		s.invalidateRaw(ctx, name)
	}
	s.log.WithField("banks", len(banks)).Info("data bundle imported")
	return len(banks), nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func (s *AssessmentService) invalidate(ctx context.Context, key domain.BookKey) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, key)
	}
}

func (s *AssessmentService) invalidateRaw(ctx context.Context, raw string) {
	if key, err := domain.ParseBookKey(raw); err == nil {
		s.invalidate(ctx, key)
	}
}

// StartSheet opens (or resumes) a student's answer sheet for a book.
func (s *AssessmentService) StartSheet(ctx context.Context, studentName string, key domain.BookKey) (domain.SheetView, error) {
	if strings.TrimSpace(studentName) == "" {
		return domain.SheetView{}, domain.ErrMissingStudent
	}
	if err := key.Validate(); err != nil {
		return domain.SheetView{}, err
	}
	// Users cannot answer books without a bank.
	bank, err := s.loadBank(ctx, key)
	if err != nil {
		return domain.SheetView{}, err
	}

	id := SheetID(studentName, key)
	sheet := s.sheets.GetOrCreate(id, SheetInit{
		StudentName: studentName,
		Key:         key,
		Questions:   bank.QuestionIndices(),
	})
	return domain.SheetView{
		SheetID:   id,
		Questions: bank.PublicView(),
		Progress:  sheet.Progress(),
	}, nil
}

// RecordAnswer stores one choice on a sheet; an empty choice clears it.
func (s *AssessmentService) RecordAnswer(_ context.Context, sheetID string, index int, choice string) (domain.SheetProgress, error) {
	sheet, ok := s.sheets.Get(sheetID)
	if !ok {
		return domain.SheetProgress{}, domain.ErrSheetNotFound
	}
	return sheet.record(index, choice)
}

// WatchSheet returns a channel of progress snapshots for a sheet.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AssessmentService) WatchSheet(_ context.Context, sheetID string) (<-chan domain.SheetProgress, func(), error) {
	sheet, ok := s.sheets.Get(sheetID)
	if !ok {
		return nil, nil, domain.ErrSheetNotFound
	}
	ch, cancel := sheet.subscribe()
	return ch, cancel, nil
}

// SubmitSheet scores a sheet and discards it on success.
func (s *AssessmentService) SubmitSheet(ctx context.Context, sheetID string) (domain.Report, error) {
	sheet, ok := s.sheets.Get(sheetID)
	if !ok {
		return domain.Report{}, domain.ErrSheetNotFound
	}
	report, err := s.Submit(ctx, sheet.submission())
	if err != nil {
		return domain.Report{}, err
	}
	s.sheets.Delete(sheetID)
	return report, nil
}

// DiscardSheet drops an unsubmitted sheet.
func (s *AssessmentService) DiscardSheet(_ context.Context, sheetID string) {
	s.sheets.Delete(sheetID)
}
