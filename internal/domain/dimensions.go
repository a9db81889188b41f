package domain

// Dimension is one of the five reading-comprehension skills scored independently.
type Dimension int

const (
	InformationRetrieval Dimension = iota
	GlobalPerception
	InferentialInterpretation
	EvaluationAppreciation
	TransferApplication
)

// DimensionCount is the number of fixed dimensions.
const DimensionCount = 5

// HighPerformanceThreshold selects the high-performance suggestion of a dimension.
const HighPerformanceThreshold = 0.7

type dimensionInfo struct {
	name           string
	localName      string
	description    string
	lowSuggestion  string
	highSuggestion string
}

var dimensionTable = [DimensionCount]dimensionInfo{
	{
		name:           "Information Retrieval",
		localName:      "获取信息维度",
		description:    "The ability to pick explicit facts and details out of a text.",
		lowSuggestion:  "Practice close reading for details and mark the key information while reading.",
		highSuggestion: "Information retrieval is solid; move on to more demanding texts.",
	},
	{
		name:           "Global Perception",
		localName:      "整体感知维度",
		description:    "The ability to grasp the overall content, main idea and structure of a text.",
		lowSuggestion:  "Practice summarizing each paragraph and naming the theme of the article.",
		highSuggestion: "Global perception is good; try analysing the structure of longer articles.",
	},
	{
		name:           "Inferential Interpretation",
		localName:      "解释推断维度",
		description:    "The ability to draw reasonable inferences and explanations from textual clues.",
		lowSuggestion:  "Pay attention to cause and effect in the text and practice predicting and inferring.",
		highSuggestion: "Inference is strong; try texts with more complex implied meaning.",
	},
	{
		name:           "Evaluation & Appreciation",
		localName:      "评价鉴赏维度",
		description:    "The ability to evaluate and appreciate the content and writing techniques of a text.",
		lowSuggestion:  "Practice reading appreciation and learn to recognise expressive techniques.",
		highSuggestion: "Evaluation and appreciation are excellent; try fuller, deeper text analysis.",
	},
	{
		name:           "Transfer & Application",
		localName:      "转化运用维度",
		description:    "The ability to apply what was read to new situations.",
		lowSuggestion:  "Practice applying knowledge and connect the reading with everyday life.",
		highSuggestion: "Transfer is outstanding; try more complex knowledge-transfer tasks.",
	},
}

// Dimensions lists all dimensions in index order.
func Dimensions() []Dimension {
	out := make([]Dimension, DimensionCount)
	for i := range out {
		out[i] = Dimension(i)
	}
	return out
}

// Valid reports whether d is one of the five fixed dimensions.
func (d Dimension) Valid() bool {
	return d >= 0 && int(d) < DimensionCount
}

// Normalize maps unknown indices to InformationRetrieval.
func (d Dimension) Normalize() Dimension {
	if !d.Valid() {
		return InformationRetrieval
	}
	return d
}

func (d Dimension) Name() string {
	return dimensionTable[d.Normalize()].name
}

func (d Dimension) Description() string {
	return dimensionTable[d.Normalize()].description
}

func (d Dimension) LowSuggestion() string {
	return dimensionTable[d.Normalize()].lowSuggestion
}

func (d Dimension) HighSuggestion() string {
	return dimensionTable[d.Normalize()].highSuggestion
}

// SuggestionFor picks the high or low suggestion using HighPerformanceThreshold.
func (d Dimension) SuggestionFor(rate float64) string {
	if rate >= HighPerformanceThreshold {
		return d.HighSuggestion()
	}
	return d.LowSuggestion()
}

// ParseDimension resolves a dimension by its exact source name (English or the
// localized spreadsheet label).
func ParseDimension(name string) (Dimension, bool) {
	for i, info := range dimensionTable {
		if name == info.name || name == info.localName {
			return Dimension(i), true
		}
	}
	return InformationRetrieval, false
}
