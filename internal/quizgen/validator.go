package quizgen

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"quizgenai/internal/models"
)

// ValidationResult reports whether a candidate satisfies the quiz contract.
type ValidationResult struct {
	Valid      bool
	Violations []string
}

// Err returns a *ValidationError when the result is invalid, nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

// Validate checks a parsed candidate against cfg. It never stops at the first
// problem; every violation is reported in check order.
func Validate(candidate any, cfg models.QuizConfig) ValidationResult {
	var violations []string
	addf := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	items, ok := candidate.([]any)
	if !ok {
		addf("Expected an array of questions, but got %s", kindOf(candidate))
		return ValidationResult{Violations: violations}
	}

	if len(items) != cfg.TotalQuestions {
		addf("Expected %d questions, but got %d", cfg.TotalQuestions, len(items))
	}

	singles, multiples := 0, 0
	for _, item := range items {
		q, _ := item.(map[string]any)
		switch q["type"] {
		case string(models.QuestionTypeSingle):
			singles++
		case string(models.QuestionTypeMultiple):
			multiples++
		}
	}
	if singles != cfg.SingleCorrect {
		addf("Expected %d single correct questions, but got %d", cfg.SingleCorrect, singles)
	}
	if multiples != cfg.MultipleCorrect {
		addf("Expected %d multiple correct questions, but got %d", cfg.MultipleCorrect, multiples)
	}

	for i, item := range items {
		n := i + 1
		q, ok := item.(map[string]any)
		if !ok {
			addf("Question %d: expected an object, but got %s", n, kindOf(item))
			continue
		}

		if text, _ := q["question"].(string); strings.TrimSpace(text) == "" {
			addf("Question %d: question text must be a non-empty string", n)
		}
		qType, _ := q["type"].(string)
		if qType != string(models.QuestionTypeSingle) && qType != string(models.QuestionTypeMultiple) {
			addf("Question %d: type must be \"single\" or \"multiple\", but got %q", n, qType)
		}

		options, ok := q["options"].([]any)
		switch {
		case !ok:
			addf("Question %d: options must be an array", n)
		case len(options) != cfg.OptionsPerQuestion:
			addf("Question %d: Expected %d options, but got %d", n, cfg.OptionsPerQuestion, len(options))
		}
		for j, opt := range options {
			if s, _ := opt.(string); strings.TrimSpace(s) == "" {
				addf("Question %d: options[%d] must be a non-empty string", n, j)
			}
		}

		answers, ok := q["correctAnswers"].([]any)
		if !ok || len(answers) == 0 {
			addf("Question %d: correctAnswers must be a non-empty array", n)
			continue
		}
		switch {
		case qType == string(models.QuestionTypeSingle) && len(answers) != 1:
			addf("Question %d: single correct question must have exactly 1 correct answer, but got %d", n, len(answers))
		case qType == string(models.QuestionTypeMultiple) && len(answers) < 2:
			addf("Question %d: multiple correct question must have at least 2 correct answers, but got %d", n, len(answers))
		}

		seen := make(map[int]bool, len(answers))
		for j, a := range answers {
			idx, ok := asIndex(a)
			if !ok {
				addf("Question %d: correctAnswers[%d] = %v is not an integer index", n, j, a)
				continue
			}
			if idx < 0 || idx >= cfg.OptionsPerQuestion {
				addf("Question %d: correctAnswers[%d] = %d is out of bounds (must be between 0 and %d)", n, j, idx, cfg.OptionsPerQuestion-1)
			}
			if seen[idx] {
				addf("Question %d: correctAnswers contains duplicate index %d", n, idx)
			}
			seen[idx] = true
		}
	}

	return ValidationResult{Valid: len(violations) == 0, Violations: violations}
}

// ValidateQuestions runs Validate over typed questions.
func ValidateQuestions(questions []models.Question, cfg models.QuizConfig) ValidationResult {
	return Validate(toCandidate(questions), cfg)
}

// ValidateAuthored checks hand-written questions. Unlike generated quizzes
// they may mix types in any order and vary their option counts.
func ValidateAuthored(questions []models.Question) ValidationResult {
	var violations []string
	addf := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if len(questions) == 0 {
		addf("A quiz needs at least one question")
	}
	for i, q := range questions {
		n := i + 1
		if strings.TrimSpace(q.Question) == "" {
			addf("Question %d: question text must be a non-empty string", n)
		}
		if len(q.Options) < 2 || len(q.Options) > MaxOptionsPerQuestion {
			addf("Question %d: must have between 2 and %d options, but got %d", n, MaxOptionsPerQuestion, len(q.Options))
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				addf("Question %d: options[%d] must be a non-empty string", n, j)
			}
		}

		switch {
		case len(q.CorrectAnswers) == 0:
			addf("Question %d: correctAnswers must be a non-empty array", n)
		case q.Type == models.QuestionTypeSingle && len(q.CorrectAnswers) != 1:
			addf("Question %d: single correct question must have exactly 1 correct answer, but got %d", n, len(q.CorrectAnswers))
		case q.Type == models.QuestionTypeMultiple && len(q.CorrectAnswers) < 2:
			addf("Question %d: multiple correct question must have at least 2 correct answers, but got %d", n, len(q.CorrectAnswers))
		case q.Type != models.QuestionTypeSingle && q.Type != models.QuestionTypeMultiple:
			addf("Question %d: type must be \"single\" or \"multiple\", but got %q", n, q.Type)
		}

		seen := make(map[int]bool, len(q.CorrectAnswers))
		for j, idx := range q.CorrectAnswers {
			if idx < 0 || idx >= len(q.Options) {
				addf("Question %d: correctAnswers[%d] = %d is out of bounds (must be between 0 and %d)", n, j, idx, len(q.Options)-1)
			}
			if seen[idx] {
				addf("Question %d: correctAnswers contains duplicate index %d", n, idx)
			}
			seen[idx] = true
		}
	}

	return ValidationResult{Valid: len(violations) == 0, Violations: violations}
}

// DecodeQuestions converts a candidate that passed Validate into typed questions.
func DecodeQuestions(candidate any) ([]models.Question, error) {
	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidate: %w", err)
	}
	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode candidate: %w", err)
	}
	return questions, nil
}

func toCandidate(questions []models.Question) []any {
	out := make([]any, len(questions))
	for i, q := range questions {
		options := make([]any, len(q.Options))
		for j, o := range q.Options {
			options[j] = o
		}
		answers := make([]any, len(q.CorrectAnswers))
		for j, a := range q.CorrectAnswers {
			answers[j] = float64(a)
		}
		out[i] = map[string]any{
			"question":       q.Question,
			"type":           string(q.Type),
			"options":        options,
			"correctAnswers": answers,
		}
	}
	return out
}

func asIndex(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || math.Trunc(f) != f || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
