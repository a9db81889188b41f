package domain

import (
	"math"
	"strings"
	"time"
)

// BookKey identifies a question bank by grade and book title.
type BookKey struct {
	Grade string `json:"grade"`
	Book  string `json:"book"`
}

// String renders the persisted "{grade}-{book}" form.
func (k BookKey) String() string {
	return k.Grade + "-" + k.Book
}

// Validate rejects keys that would render ambiguously. Grades may not contain
// the delimiter, so the first '-' always separates grade from book.
func (k BookKey) Validate() error {
	if k.Grade == "" || strings.Contains(k.Grade, "-") {
		return ErrInvalidGrade
	}
	if k.Book == "" {
		return ErrInvalidBook
	}
	return nil
}

// ParseBookKey splits a persisted key at its first '-'.
func ParseBookKey(raw string) (BookKey, error) {
	grade, book, ok := strings.Cut(raw, "-")
	if !ok {
		return BookKey{}, ErrInvalidGrade
	}
	key := BookKey{Grade: grade, Book: book}
	return key, key.Validate()
}

// Options holds the four choice texts of a question.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the text for a choice letter, or "" for unknown letters.
func (o Options) Get(letter string) string {
	switch letter {
	case "A":
		return o.A
	case "B":
		return o.B
	case "C":
		return o.C
	case "D":
		return o.D
	}
	return ""
}

// StudentAnswers maps a question index to the chosen letter. Missing entries
// are unanswered questions.
type StudentAnswers map[int]string

// IncorrectQuestion is one missed question with the context needed to review it.
type IncorrectQuestion struct {
	Index         int       `json:"index"`
	Question      string    `json:"question"`
	StudentAnswer string    `json:"studentAnswer,omitempty"`
	CorrectAnswer string    `json:"correctAnswer"`
	Dimension     Dimension `json:"dimension"`
	Options       Options   `json:"options"`
	Explanation   string    `json:"explanation,omitempty"`
}

// Answered reports whether the student picked any choice.
func (q IncorrectQuestion) Answered() bool {
	return q.StudentAnswer != ""
}

// DisplayStudentAnswer renders the student's choice, or "not answered".
func (q IncorrectQuestion) DisplayStudentAnswer() string {
	if !q.Answered() {
		return "not answered"
	}
	return q.StudentAnswer
}

// EvaluationResult is the outcome of scoring one answer set against one bank.
type EvaluationResult struct {
	TotalQuestions     int                     `json:"totalQuestions"`
	CorrectCount       int                     `json:"correctCount"`
	DimensionCounts    [DimensionCount]int     `json:"dimensionCounts"`
	DimensionScores    [DimensionCount]int     `json:"dimensionScores"`
	DimensionRates     [DimensionCount]float64 `json:"dimensionRates"`
	IncorrectQuestions []IncorrectQuestion     `json:"incorrectQuestions"`
}

// Accuracy is the integer percentage of correct answers; 0 when nothing was scored.
func (r EvaluationResult) Accuracy() int {
	return Percent(r.CorrectCount, r.TotalQuestions)
}

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return RoundHalfUp(float64(part) / float64(total) * 100)
}

// RoundHalfUp rounds to the nearest integer with halves going toward +Inf, so
// -0.5 rounds to 0 rather than -1.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// HistoryRecord is the persisted snapshot of a completed assessment.
type HistoryRecord struct {
	ID             int64     `json:"id"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	StudentName    string    `json:"studentName"`
	Grade          string    `json:"grade"`
	Book           string    `json:"book"`
	Accuracy       int       `json:"accuracy"`
	DimensionRates []float64 `json:"dimensionRates"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
}

// Key returns the bank key the record was scored against.
func (r HistoryRecord) Key() BookKey {
	return BookKey{Grade: r.Grade, Book: r.Book}
}

// Matches reports whether the record belongs to the student/grade/book triple.
// Comparison is exact and case-sensitive.
func (r HistoryRecord) Matches(studentName, grade, book string) bool {
	return r.StudentName == studentName && r.Grade == grade && r.Book == book
}

// RateAt returns the stored rate for a dimension and whether it was recorded.
func (r HistoryRecord) RateAt(d Dimension) (float64, bool) {
	if int(d) < 0 || int(d) >= len(r.DimensionRates) {
		return 0, false
	}
	return r.DimensionRates[d], true
}

// NewHistoryRecord snapshots an evaluation at the given creation time.
func NewHistoryRecord(id int64, createdAt time.Time, studentName string, key BookKey, result EvaluationResult) HistoryRecord {
	return HistoryRecord{
		ID:             id,
		Date:           createdAt.Format("2006-01-02"),
		Time:           createdAt.Format("15:04:05"),
		StudentName:    studentName,
		Grade:          key.Grade,
		Book:           key.Book,
		Accuracy:       result.Accuracy(),
		DimensionRates: append([]float64(nil), result.DimensionRates[:]...),
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
	}
}

// Trend classifies an accuracy change.
type Trend string

const (
	TrendImproved  Trend = "improved"
	TrendDeclined  Trend = "declined"
	TrendUnchanged Trend = "unchanged"
)

// TrendOf classifies a signed change in percentage points.
func TrendOf(change int) Trend {
	switch {
	case change > 0:
		return TrendImproved
	case change < 0:
		return TrendDeclined
	default:
		return TrendUnchanged
	}
}

// DimensionDelta is a non-zero per-dimension change against the baseline.
type DimensionDelta struct {
	Dimension     Dimension `json:"dimension"`
	Name          string    `json:"name"`
	ChangePercent int       `json:"changePercent"`
	Trend         Trend     `json:"trend"`
	// BaselineMissing marks deltas computed against a rate the older record
	// never stored; the baseline was read as 0.
	BaselineMissing bool `json:"baselineMissing,omitempty"`
}

// ProgressReport compares an evaluation with the most recent prior attempt.
// HasHistory false is the first-assessment marker and carries no comparison.
type ProgressReport struct {
	HasHistory          bool             `json:"hasHistory"`
	PreviousID          int64            `json:"previousId,omitempty"`
	PreviousAccuracy    int              `json:"previousAccuracy,omitempty"`
	CurrentAccuracy     int              `json:"currentAccuracy"`
	AccuracyChange      int              `json:"accuracyChange"`
	Trend               Trend            `json:"trend,omitempty"`
	DimensionDeltas     []DimensionDelta `json:"dimensionDeltas,omitempty"`
	NoSignificantChange bool             `json:"noSignificantChange,omitempty"`
}

// RadarChart is the chart series: one label and one 0-100 value per dimension.
type RadarChart struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// DimensionDetail describes one assessed dimension in a report.
type DimensionDetail struct {
	Dimension   Dimension `json:"dimension"`
	Name        string    `json:"name"`
	Percent     int       `json:"percent"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
}

// DimensionAdvice pairs a dimension with suggestion text.
type DimensionAdvice struct {
	Dimension  Dimension `json:"dimension"`
	Name       string    `json:"name"`
	Suggestion string    `json:"suggestion"`
}

// Suggestions is the improvement advice section of a report.
type Suggestions struct {
	Overall string            `json:"overall"`
	Weak    []DimensionAdvice `json:"weak,omitempty"`
	Strong  []DimensionAdvice `json:"strong,omitempty"`
	General string            `json:"general"`
}

// Report is the full assessment report for one submission.
type Report struct {
	RecordID    int64               `json:"recordId,omitempty"`
	StudentName string              `json:"studentName"`
	Grade       string              `json:"grade"`
	Book        string              `json:"book"`
	Date        string              `json:"date"`
	Accuracy    int                 `json:"accuracy"`
	Evaluation  *EvaluationResult   `json:"evaluation,omitempty"`
	Chart       RadarChart          `json:"chart"`
	Dimensions  []DimensionDetail   `json:"dimensions,omitempty"`
	Incorrect   []IncorrectQuestion `json:"incorrect,omitempty"`
	Progress    *ProgressReport     `json:"progress,omitempty"`
	Suggestions *Suggestions        `json:"suggestions,omitempty"`
}

// BookInfo is the human-readable grade/book line.
func (r Report) BookInfo() string {
	return "Grade " + r.Grade + " - " + r.Book
}

// SharedReport is a stored, self-contained report snapshot.
type SharedReport struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	// ExpiresAt is advertised to readers; retention is governed by the export cap.
	ExpiresAt time.Time `json:"expiresAt"`
	Report    Report    `json:"report"`
}

// SharedReportSummary is one entry of the shared report index.
type SharedReportSummary struct {
	ID          string `json:"id"`
	StudentName string `json:"studentName"`
	BookInfo    string `json:"bookInfo"`
	Date        string `json:"date"`
}

// Catalogue lists book titles per grade in insertion order.
type Catalogue map[string][]string

// HasBooks reports whether any grade lists at least one book.
func (c Catalogue) HasBooks() bool {
	for _, books := range c {
		if len(books) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c Catalogue) Clone() Catalogue {
	out := make(Catalogue, len(c))
	for grade, books := range c {
		out[grade] = append([]string(nil), books...)
	}
	return out
}

// DataBundle is the bulk interchange document.
type DataBundle struct {
	BooksDatabase   Catalogue               `json:"booksDatabase"`
	AnswersDatabase map[string]QuestionBank `json:"answersDatabase"`
	ExportTime      string                  `json:"exportTime"`
	Version         string                  `json:"version"`
}

// BundleVersion is written into every exported bundle.
const BundleVersion = "1.0"

// Submission is one student's completed answer set for a book.
type Submission struct {
	StudentName string         `json:"studentName"`
	Grade       string         `json:"grade"`
	Book        string         `json:"book"`
	Answers     StudentAnswers `json:"answers"`
}

// Key returns the bank key the submission is scored against.
func (s Submission) Key() BookKey {
	return BookKey{Grade: s.Grade, Book: s.Book}
}

// SheetProgress is a snapshot of an in-progress answer sheet.
type SheetProgress struct {
	SheetID     string    `json:"sheetId"`
	StudentName string    `json:"studentName"`
	Grade       string    `json:"grade"`
	Book        string    `json:"book"`
	Answered    int       `json:"answered"`
	Total       int       `json:"total"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SheetView is what a student receives when starting an answer sheet.
type SheetView struct {
	SheetID   string           `json:"sheetId"`
	Questions []PublicQuestion `json:"questions"`
	Progress  SheetProgress    `json:"progress"`
}
