package app

import (
	"sort"

	"reading-assessment-service/internal/domain"
)

// AnalyzeProgress compares current against the most recent prior record of the
// same student, grade and book. excludeID is the record created by the current
// submission so an attempt is never compared with itself.
func AnalyzeProgress(studentName, grade, book string, excludeID int64, current domain.EvaluationResult, history []domain.HistoryRecord) domain.ProgressReport {
	currentAccuracy := current.Accuracy()

	prior := make([]domain.HistoryRecord, 0, len(history))
	for _, record := range history {
		if record.ID == excludeID {
			continue
		}
		if record.Matches(studentName, grade, book) {
			prior = append(prior, record)
		}
	}
	if len(prior) == 0 {
		return domain.ProgressReport{HasHistory: false, CurrentAccuracy: currentAccuracy}
	}

	sort.SliceStable(prior, func(i, j int) bool {
		return prior[i].ID < prior[j].ID
	})
	previous := prior[len(prior)-1]

	change := currentAccuracy - previous.Accuracy
	report := domain.ProgressReport{
		HasHistory:       true,
		PreviousID:       previous.ID,
		PreviousAccuracy: previous.Accuracy,
		CurrentAccuracy:  currentAccuracy,
		AccuracyChange:   change,
		Trend:            domain.TrendOf(change),
	}

	for _, d := range domain.Dimensions() {
		if current.DimensionCounts[d] == 0 {
			continue
		}
		// An absent baseline reads as 0, which can overstate improvement.
		prevRate, recorded := previous.RateAt(d)
		delta := domain.RoundHalfUp((current.DimensionRates[d] - prevRate) * 100)
		if delta == 0 {
			continue
		}
		report.DimensionDeltas = append(report.DimensionDeltas, domain.DimensionDelta{
			Dimension:       d,
			Name:            d.Name(),
			ChangePercent:   delta,
			Trend:           domain.TrendOf(delta),
			BaselineMissing: !recorded,
		})
	}
	report.NoSignificantChange = len(report.DimensionDeltas) == 0
	return report
}
