package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MaxQuestions bounds the slot count of a bank.
const MaxQuestions = 500

// QuestionBank is the question set of one grade/book. All five maps share one
// index space; a question exists at index i iff Questions[i] is non-empty.
type QuestionBank struct {
	Questions    map[int]string
	Options      map[int]Options
	Answers      map[int]string
	Dimensions   map[int]Dimension
	Explanations map[int]string
}

// NewQuestionBank returns an empty bank with initialized maps.
func NewQuestionBank() QuestionBank {
	return QuestionBank{
		Questions:    make(map[int]string),
		Options:      make(map[int]Options),
		Answers:      make(map[int]string),
		Dimensions:   make(map[int]Dimension),
		Explanations: make(map[int]string),
	}
}

// Len is the size of the shared index space: highest populated index + 1.
func (b QuestionBank) Len() int {
	n := 0
	grow := func(i int) {
		if i+1 > n {
			n = i + 1
		}
	}
	for i := range b.Questions {
		grow(i)
	}
	for i := range b.Options {
		grow(i)
	}
	for i := range b.Answers {
		grow(i)
	}
	for i := range b.Dimensions {
		grow(i)
	}
	for i := range b.Explanations {
		grow(i)
	}
	return n
}

// HasQuestion reports whether a logical question exists at index i.
func (b QuestionBank) HasQuestion(i int) bool {
	return b.Questions[i] != ""
}

// QuestionIndices returns the indices holding question text, ascending.
func (b QuestionBank) QuestionIndices() []int {
	out := make([]int, 0, len(b.Questions))
	for i, q := range b.Questions {
		if q != "" {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// DimensionAt returns the dimension at index i, defaulting to InformationRetrieval.
func (b QuestionBank) DimensionAt(i int) Dimension {
	return b.Dimensions[i].Normalize()
}

// Truncate drops every slot at or beyond n.
func (b *QuestionBank) Truncate(n int) {
	for i := range b.Questions {
		if i >= n {
			delete(b.Questions, i)
		}
	}
	for i := range b.Options {
		if i >= n {
			delete(b.Options, i)
		}
	}
	for i := range b.Answers {
		if i >= n {
			delete(b.Answers, i)
		}
	}
	for i := range b.Dimensions {
		if i >= n {
			delete(b.Dimensions, i)
		}
	}
	for i := range b.Explanations {
		if i >= n {
			delete(b.Explanations, i)
		}
	}
}

// Clone returns a deep copy so callers can never mutate a stored bank.
func (b QuestionBank) Clone() QuestionBank {
	out := NewQuestionBank()
	for i, v := range b.Questions {
		out.Questions[i] = v
	}
	for i, v := range b.Options {
		out.Options[i] = v
	}
	for i, v := range b.Answers {
		out.Answers[i] = v
	}
	for i, v := range b.Dimensions {
		out.Dimensions[i] = v
	}
	for i, v := range b.Explanations {
		out.Explanations[i] = v
	}
	return out
}

// AnomalyKind names a recoverable inconsistency in a bank slot.
type AnomalyKind string

const (
	// AnomalyMissingAnswer is question text without a correct answer.
	AnomalyMissingAnswer AnomalyKind = "missing_answer"
	// AnomalyMissingQuestion is a correct answer without question text.
	AnomalyMissingQuestion AnomalyKind = "missing_question"
)

// Anomaly is a partial slot flagged for confirmation.
type Anomaly struct {
	Index int         `json:"index"`
	Kind  AnomalyKind `json:"kind"`
}

func (a Anomaly) String() string {
	if a.Kind == AnomalyMissingAnswer {
		return fmt.Sprintf("question %d has no correct answer", a.Index+1)
	}
	return fmt.Sprintf("answer %d has no question text", a.Index+1)
}

// Anomalies lists slots holding an answer without a question or vice versa.
func (b QuestionBank) Anomalies() []Anomaly {
	var out []Anomaly
	n := b.Len()
	for i := 0; i < n; i++ {
		hasQuestion := b.Questions[i] != ""
		hasAnswer := b.Answers[i] != ""
		switch {
		case hasQuestion && !hasAnswer:
			out = append(out, Anomaly{Index: i, Kind: AnomalyMissingAnswer})
		case !hasQuestion && hasAnswer:
			out = append(out, Anomaly{Index: i, Kind: AnomalyMissingQuestion})
		}
	}
	return out
}

// bankJSON is the array form of a bank; absent slots are null.
type bankJSON struct {
	Questions    []*string  `json:"questions"`
	Options      []*Options `json:"options"`
	Answers      []*string  `json:"answers"`
	Dimensions   []*int     `json:"dimensions"`
	Explanations []*string  `json:"explanations"`
}

func (b QuestionBank) MarshalJSON() ([]byte, error) {
	n := b.Len()
	out := bankJSON{
		Questions:    make([]*string, n),
		Options:      make([]*Options, n),
		Answers:      make([]*string, n),
		Dimensions:   make([]*int, n),
		Explanations: make([]*string, n),
	}
	for i := 0; i < n; i++ {
		if v, ok := b.Questions[i]; ok && v != "" {
			out.Questions[i] = &v
		}
		if v, ok := b.Options[i]; ok {
			out.Options[i] = &v
		}
		if v, ok := b.Answers[i]; ok && v != "" {
			out.Answers[i] = &v
		}
		if v, ok := b.Dimensions[i]; ok {
			d := int(v)
			out.Dimensions[i] = &d
		}
		if v, ok := b.Explanations[i]; ok && v != "" {
			out.Explanations[i] = &v
		}
	}
	return json.Marshal(out)
}

func (b *QuestionBank) UnmarshalJSON(data []byte) error {
	var in bankJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = NewQuestionBank()
	for i, v := range in.Questions {
		if v != nil && *v != "" {
			b.Questions[i] = *v
		}
	}
	for i, v := range in.Options {
		if v != nil {
			b.Options[i] = *v
		}
	}
	for i, v := range in.Answers {
		if v != nil && *v != "" {
			b.Answers[i] = *v
		}
	}
	for i, v := range in.Dimensions {
		if v != nil {
			b.Dimensions[i] = Dimension(*v).Normalize()
		}
	}
	for i, v := range in.Explanations {
		if v != nil && *v != "" {
			b.Explanations[i] = *v
		}
	}
	return nil
}

// PublicView strips answers and explanations so a bank can be handed to a
// student answering it.
func (b QuestionBank) PublicView() []PublicQuestion {
	indices := b.QuestionIndices()
	out := make([]PublicQuestion, 0, len(indices))
	for _, i := range indices {
		out = append(out, PublicQuestion{
			Index:    i,
			Question: strings.TrimSpace(b.Questions[i]),
			Options:  b.Options[i],
		})
	}
	return out
}

// PublicQuestion is a question without its answer.
type PublicQuestion struct {
	Index    int     `json:"index"`
	Question string  `json:"question"`
	Options  Options `json:"options"`
}
