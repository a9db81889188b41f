package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"reading-assessment-service/internal/domain"
)

var (
	// ErrNoAnswers is returned when no row yields a correct answer; no bank is produced.
	ErrNoAnswers = errors.New("no answers found in import rows")
	// ErrBadFileName is returned when a file name does not follow "{grade}-{book}".
	ErrBadFileName = errors.New("file name must look like {grade}-{book}")
)

// Aliases lists, per field, the header names accepted for it in priority order.
type Aliases struct {
	Number      []string
	Answer      []string
	Dimension   []string
	Question    []string
	Options     [4][]string
	Explanation []string
}

// DefaultAliases covers the English and Chinese headers seen in source workbooks.
func DefaultAliases() Aliases {
	return Aliases{
		Number:    []string{"number", "题号", "题目序号", "id"},
		Answer:    []string{"answer", "答案", "正确答案"},
		Dimension: []string{"dimension", "维度", "能力维度"},
		Question:  []string{"question", "题目", "问题"},
		Options: [4][]string{
			{"optionA", "A", "A选项", "选项A"},
			{"optionB", "B", "B选项", "选项B"},
			{"optionC", "C", "C选项", "选项C"},
			{"optionD", "D", "D选项", "选项D"},
		},
		Explanation: []string{"explanation", "解析", "题目解析"},
	}
}

// Normalize builds a question bank from rows. Question numbers are 1-based;
// rows without a usable number, or numbered past domain.MaxQuestions, are
// skipped. Trailing empty slots are trimmed while internal gaps are kept.
func Normalize(rows []Row, aliases Aliases) (domain.QuestionBank, error) {
	bank := domain.NewQuestionBank()
	answered := false

	for _, row := range rows {
		number, ok := lookup(row, aliases.Number)
		if !ok || number == "" {
			continue
		}
		n, ok := parseLeadingInt(number)
		if !ok || n < 1 || n > domain.MaxQuestions {
			continue
		}
		index := n - 1

		if answer, ok := lookup(row, aliases.Answer); ok {
			if letter := strings.ToUpper(strings.TrimSpace(answer)); letter != "" {
				bank.Answers[index] = letter
				answered = true
			}
		}
		if name, ok := lookup(row, aliases.Dimension); ok && name != "" {
			d, _ := domain.ParseDimension(name)
			bank.Dimensions[index] = d
		}
		if question, ok := lookup(row, aliases.Question); ok && question != "" {
			bank.Questions[index] = question
		}

		var opts [4]string
		for i, names := range aliases.Options {
			opts[i], _ = lookup(row, names)
		}
		bank.Options[index] = domain.Options{A: opts[0], B: opts[1], C: opts[2], D: opts[3]}

		if explanation, ok := lookup(row, aliases.Explanation); ok && explanation != "" {
			bank.Explanations[index] = explanation
		}
	}

	if !answered {
		return domain.QuestionBank{}, ErrNoAnswers
	}

	maxIndex := 0
	n := bank.Len()
	for i := 0; i < n; i++ {
		if bank.Answers[i] != "" || strings.TrimSpace(bank.Questions[i]) != "" {
			maxIndex = i
		}
	}
	bank.Truncate(maxIndex + 1)
	return bank, nil
}

// lookup returns the value of the first alias present in row.
func lookup(row Row, names []string) (string, bool) {
	for _, name := range names {
		if v, ok := row[name]; ok {
			return v, true
		}
	}
	return "", false
}

// parseLeadingInt reads an optionally signed run of leading digits, ignoring
// leading whitespace and any trailing text ("12", " 7.0", "3rd").
func parseLeadingInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	sign := 1
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		n = n*10 + int(s[digits]-'0')
		digits++
		if n > 1<<30 {
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	return sign * n, true
}

var fileNamePattern = regexp.MustCompile(`^(\d+)[_\-\s]+(.+)$`)

// ParseFileName derives the bank key from names like "3-Charlotte's Web.xlsx".
func ParseFileName(name string) (domain.BookKey, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	m := fileNamePattern.FindStringSubmatch(base)
	if m == nil {
		return domain.BookKey{}, fmt.Errorf("%w: %s", ErrBadFileName, name)
	}
	return domain.BookKey{Grade: m[1], Book: m[2]}, nil
}
