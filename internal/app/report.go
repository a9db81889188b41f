package app

import (
	"reading-assessment-service/internal/domain"
)

const (
	weakThreshold   = 0.6
	strongThreshold = 0.8
)

const generalAdvice = "While reading, ask questions, predict what comes next, summarize the main idea, " +
	"relate the text to everyday life and think about it from several angles. Read every day and build up step by step."

// BuildReport assembles the full report for an evaluation.
func BuildReport(studentName string, key domain.BookKey, date string, result domain.EvaluationResult, progress domain.ProgressReport) domain.Report {
	evaluation := result
	report := domain.Report{
		StudentName: studentName,
		Grade:       key.Grade,
		Book:        key.Book,
		Date:        date,
		Accuracy:    result.Accuracy(),
		Evaluation:  &evaluation,
		Chart:       RadarChartOf(result.DimensionRates[:]),
		Dimensions:  DimensionDetails(result),
		Incorrect:   result.IncorrectQuestions,
		Progress:    &progress,
	}
	suggestions := BuildSuggestions(result)
	report.Suggestions = &suggestions
	return report
}

// RadarChartOf converts rates into one 0-100 value per dimension. Missing rates
// plot as 0.
func RadarChartOf(rates []float64) domain.RadarChart {
	chart := domain.RadarChart{
		Labels: make([]string, domain.DimensionCount),
		Values: make([]int, domain.DimensionCount),
	}
	for _, d := range domain.Dimensions() {
		chart.Labels[d] = d.Name()
		if int(d) < len(rates) {
			chart.Values[d] = domain.RoundHalfUp(rates[d] * 100)
		}
	}
	return chart
}

// DimensionDetails describes every dimension assessed in result.
func DimensionDetails(result domain.EvaluationResult) []domain.DimensionDetail {
	var out []domain.DimensionDetail
	for _, d := range domain.Dimensions() {
		if result.DimensionCounts[d] == 0 {
			continue
		}
		rate := result.DimensionRates[d]
		out = append(out, domain.DimensionDetail{
			Dimension:   d,
			Name:        d.Name(),
			Percent:     domain.RoundHalfUp(rate * 100),
			Description: d.Description(),
			Suggestion:  d.SuggestionFor(rate),
		})
	}
	return out
}

// BuildSuggestions classifies assessed dimensions as weak (< 0.6) or strong
// (>= 0.8) and grades overall accuracy.
func BuildSuggestions(result domain.EvaluationResult) domain.Suggestions {
	s := domain.Suggestions{
		Overall: overallLabel(result.Accuracy()),
		General: generalAdvice,
	}
	for _, d := range domain.Dimensions() {
		if result.DimensionCounts[d] == 0 {
			continue
		}
		rate := result.DimensionRates[d]
		switch {
		case rate < weakThreshold:
			s.Weak = append(s.Weak, domain.DimensionAdvice{Dimension: d, Name: d.Name(), Suggestion: d.LowSuggestion()})
		case rate >= strongThreshold:
			s.Strong = append(s.Strong, domain.DimensionAdvice{Dimension: d, Name: d.Name(), Suggestion: d.HighSuggestion()})
		}
	}
	return s
}

func overallLabel(accuracy int) string {
	switch {
	case accuracy >= 90:
		return "Excellent! Reading ability is very strong across all dimensions."
	case accuracy >= 75:
		return "Good! Reading is steady in most dimensions."
	case accuracy >= 60:
		return "Pass. The basics are in place, but some dimensions need more practice."
	default:
		return "Needs improvement. Targeted practice is recommended."
	}
}

// ReportFromRecord rebuilds the viewable part of a report from a stored record.
// Question-level detail is not kept in history, so only the summary sections
// are filled in.
func ReportFromRecord(record domain.HistoryRecord) domain.Report {
	return domain.Report{
		RecordID:    record.ID,
		StudentName: record.StudentName,
		Grade:       record.Grade,
		Book:        record.Book,
		Date:        record.Date,
		Accuracy:    record.Accuracy,
		Chart:       RadarChartOf(record.DimensionRates),
	}
}
