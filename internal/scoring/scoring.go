// Package scoring grades quiz submissions.
//
// Single-correct questions earn 1 only for exactly the correct option.
// Multiple-correct questions earn 0 as soon as any wrong option is selected,
// otherwise the fraction of correct options that were selected. A question
// counts as correct only with a score of 1.
package scoring

import (
	"sort"

	"quizgenai/internal/models"
)

// Score grades submission against questions, in question order.
func Score(questions []models.Question, submission models.AnswerSubmission) models.QuizResult {
	result := models.QuizResult{
		TotalQuestions: len(questions),
		Details:        make([]models.QuestionResult, 0, len(questions)),
	}

	for i, q := range questions {
		selected := dedupe(submission[i])
		score := ScoreQuestion(q, selected)
		isCorrect := score == 1

		result.Score += score
		if isCorrect {
			result.CorrectCount++
		} else {
			result.IncorrectCount++
		}
		result.Details = append(result.Details, models.QuestionResult{
			Question:      q.Question,
			UserAnswer:    Label(selected),
			CorrectAnswer: Label(q.CorrectAnswers),
			IsCorrect:     isCorrect,
			Score:         score,
			Type:          q.Type,
		})
	}
	return result
}

// ScoreQuestion returns the credit in [0,1] for one question.
func ScoreQuestion(q models.Question, selected []int) float64 {
	selected = dedupe(selected)
	correct := make(map[int]bool, len(q.CorrectAnswers))
	for _, c := range q.CorrectAnswers {
		correct[c] = true
	}
	if len(correct) == 0 || len(selected) == 0 {
		return 0
	}

	if q.Type == models.QuestionTypeSingle {
		if len(selected) == len(correct) && correct[selected[0]] {
			return 1
		}
		return 0
	}

	hits := 0
	for _, s := range selected {
		if !correct[s] {
			return 0
		}
		hits++
	}
	return float64(hits) / float64(len(correct))
}

func dedupe(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
