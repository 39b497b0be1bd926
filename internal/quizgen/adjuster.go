package quizgen

import (
	"fmt"
	"strings"

	"quizgenai/internal/models"
)

const excerptLength = 20

// Adjust coerces a near-valid candidate towards cfg: it truncates or pads the
// question list, re-types entries by position (singles first) and reshapes
// each correct-answer set to fit its type. Option lists keep their length, so
// the result must still be validated. defaulted reports whether any question
// was padded in or had its answer key replaced by a placeholder key.
func Adjust(candidate any, cfg models.QuizConfig, source string) (adjusted []any, defaulted bool) {
	items, _ := candidate.([]any)
	if len(items) > cfg.TotalQuestions {
		items = items[:cfg.TotalQuestions]
	}

	out := make([]any, 0, cfg.TotalQuestions)
	for i := 0; i < cfg.TotalQuestions; i++ {
		n := i + 1
		var q map[string]any
		if i < len(items) {
			q = copyObject(items[i])
		}
		if q == nil {
			defaulted = true
			q = map[string]any{
				"question":       fmt.Sprintf("Adjusted Question %d (From: %s)", n, excerpt(source)),
				"options":        placeholderOptions("Adjusted Option", cfg.OptionsPerQuestion),
				"correctAnswers": []any{},
			}
		}

		if text, _ := q["question"].(string); strings.TrimSpace(text) == "" {
			q["question"] = fmt.Sprintf("Adjusted Question %d (From: %s)", n, excerpt(source))
		}
		if options, ok := q["options"].([]any); ok {
			for j, opt := range options {
				if s, _ := opt.(string); strings.TrimSpace(s) == "" {
					options[j] = fmt.Sprintf("Adjusted Option %d", j+1)
				}
			}
		}

		valid := validIndices(q["correctAnswers"], cfg.OptionsPerQuestion)
		if i < cfg.SingleCorrect {
			q["type"] = string(models.QuestionTypeSingle)
			if len(valid) >= 1 {
				q["correctAnswers"] = []any{float64(valid[0])}
			} else {
				q["correctAnswers"] = []any{float64(0)}
				defaulted = true
			}
		} else {
			q["type"] = string(models.QuestionTypeMultiple)
			if len(valid) >= 2 {
				q["correctAnswers"] = []any{float64(valid[0]), float64(valid[1])}
			} else {
				q["correctAnswers"] = []any{float64(0), float64(1)}
				defaulted = true
			}
		}
		out = append(out, q)
	}
	return out, defaulted
}

// Fallback builds a placeholder quiz that satisfies cfg by construction.
// No model is involved; each question carries an excerpt of the source.
func Fallback(cfg models.QuizConfig, source string) []models.Question {
	questions := make([]models.Question, cfg.TotalQuestions)
	for i := range questions {
		options := make([]string, cfg.OptionsPerQuestion)
		for j := range options {
			options[j] = fmt.Sprintf("Fallback Option %d", j+1)
		}
		q := models.Question{
			Question: fmt.Sprintf("Fallback Question %d (From: %s)", i+1, excerpt(source)),
			Options:  options,
		}
		if i < cfg.SingleCorrect {
			q.Type = models.QuestionTypeSingle
			q.CorrectAnswers = []int{0}
		} else {
			q.Type = models.QuestionTypeMultiple
			q.CorrectAnswers = []int{0, 1}
		}
		questions[i] = q
	}
	return questions
}

func excerpt(source string) string {
	s := strings.Join(strings.Fields(source), " ")
	r := []rune(s)
	if len(r) > excerptLength {
		r = r[:excerptLength]
	}
	return string(r) + "..."
}

func placeholderOptions(label string, n int) []any {
	options := make([]any, n)
	for j := range options {
		options[j] = fmt.Sprintf("%s %d", label, j+1)
	}
	return options
}

func copyObject(v any) map[string]any {
	src, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, val := range src {
		dst[k] = val
	}
	if options, ok := src["options"].([]any); ok {
		dst["options"] = append([]any(nil), options...)
	}
	return dst
}

func validIndices(v any, optionCount int) []int {
	answers, _ := v.([]any)
	seen := make(map[int]bool, len(answers))
	var out []int
	for _, a := range answers {
		idx, ok := asIndex(a)
		if !ok || idx < 0 || idx >= optionCount || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}
