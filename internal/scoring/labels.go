package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"quizgenai/internal/models"
)

// NotAnswered labels a question with no selected options.
const NotAnswered = "Not answered"

// Label renders zero-based option indices as letters, e.g. [0 2] -> "a, c".
func Label(indices []int) string {
	if len(indices) == 0 {
		return NotAnswered
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	labels := make([]string, len(sorted))
	for i, idx := range sorted {
		labels[i] = letter(idx)
	}
	return strings.Join(labels, ", ")
}

func letter(idx int) string {
	if idx >= 0 && idx < 26 {
		return string(rune('a' + idx))
	}
	return strconv.Itoa(idx)
}

// ParseOption converts an option reference to a zero-based index. Accepted
// forms are letters ("b", "B", "b)"), numeric strings ("1") and JSON numbers.
func ParseOption(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("option %v is not an integer", t)
		}
		return int(t), nil
	case int:
		return t, nil
	case string:
		s := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(t), ").:"))
		if s == "" {
			return 0, fmt.Errorf("empty option label")
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		if len(s) == 1 {
			c := strings.ToLower(s)[0]
			if c >= 'a' && c <= 'z' {
				return int(c - 'a'), nil
			}
		}
		return 0, fmt.Errorf("unrecognised option label %q", t)
	default:
		return 0, fmt.Errorf("unsupported option value %v", v)
	}
}

// ParseSubmission converts raw answers keyed by question index into an
// AnswerSubmission, checking every reference against the quiz.
func ParseSubmission(questions []models.Question, raw map[string][]any) (models.AnswerSubmission, error) {
	submission := make(models.AnswerSubmission, len(raw))
	for key, values := range raw {
		qi, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || qi < 0 || qi >= len(questions) {
			return nil, fmt.Errorf("invalid question index %q", key)
		}
		optionCount := len(questions[qi].Options)
		for _, v := range values {
			idx, err := ParseOption(v)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", qi, err)
			}
			if idx < 0 || idx >= optionCount {
				return nil, fmt.Errorf("question %d: option %d is out of range", qi, idx)
			}
			submission[qi] = append(submission[qi], idx)
		}
	}
	return submission, nil
}
