package app

import "reading-assessment-service/internal/domain"

// Evaluate scores a student's answers against a question bank. It is pure: the
// bank is only read and the same inputs always yield the same result.
func Evaluate(answers domain.StudentAnswers, bank domain.QuestionBank) domain.EvaluationResult {
	result := domain.EvaluationResult{
		IncorrectQuestions: []domain.IncorrectQuestion{},
	}

	n := bank.Len()
	for i := 0; i < n; i++ {
		question := bank.Questions[i]
		// Empty slots are not questions and never reach a denominator.
		if question == "" {
			continue
		}

		result.TotalQuestions++
		dimension := bank.DimensionAt(i)
		result.DimensionCounts[dimension]++

		if answers[i] == bank.Answers[i] {
			result.CorrectCount++
			result.DimensionScores[dimension]++
			continue
		}
		result.IncorrectQuestions = append(result.IncorrectQuestions, domain.IncorrectQuestion{
			Index:         i,
			Question:      question,
			StudentAnswer: answers[i],
			CorrectAnswer: bank.Answers[i],
			Dimension:     dimension,
			Options:       bank.Options[i],
			Explanation:   bank.Explanations[i],
		})
	}

	for d := range result.DimensionRates {
		if result.DimensionCounts[d] > 0 {
			result.DimensionRates[d] = float64(result.DimensionScores[d]) / float64(result.DimensionCounts[d])
		}
	}
	return result
}
