package scoring

import (
	"testing"

	"quizgenai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleQuestion() models.Question {
	return models.Question{
		Question:       "Which one?",
		Type:           models.QuestionTypeSingle,
		Options:        []string{"o0", "o1", "o2"},
		CorrectAnswers: []int{1},
	}
}

func multipleQuestion() models.Question {
	return models.Question{
		Question:       "Which ones?",
		Type:           models.QuestionTypeMultiple,
		Options:        []string{"o0", "o1", "o2", "o3"},
		CorrectAnswers: []int{0, 2},
	}
}

func TestScoreQuestionSingle(t *testing.T) {
	tests := []struct {
		name     string
		selected []int
		want     float64
	}{
		{"correct option", []int{1}, 1},
		{"wrong option", []int{0}, 0},
		{"unanswered", nil, 0},
		{"correct plus wrong", []int{1, 2}, 0},
		{"duplicate correct", []int{1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreQuestion(singleQuestion(), tt.selected))
		})
	}
}

func TestScoreQuestionMultiple(t *testing.T) {
	tests := []struct {
		name     string
		selected []int
		want     float64
	}{
		{"half of the correct options", []int{0}, 0.5},
		{"all correct options", []int{0, 2}, 1},
		{"wrong option included", []int{0, 1, 2}, 0},
		{"only wrong options", []int{1, 3}, 0},
		{"unanswered", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreQuestion(multipleQuestion(), tt.selected), 1e-9)
		})
	}
}

func TestScoreCountsByCorrectness(t *testing.T) {
	questions := []models.Question{singleQuestion(), multipleQuestion(), multipleQuestion()}
	submission := models.AnswerSubmission{
		0: {1},
		1: {0},
		2: {2, 0},
	}

	result := Score(questions, submission)

	assert.InDelta(t, 2.5, result.Score, 1e-9)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 1, result.IncorrectCount)
	require.Len(t, result.Details, 3)

	partial := result.Details[1]
	assert.False(t, partial.IsCorrect)
	assert.InDelta(t, 0.5, partial.Score, 1e-9)
	assert.Equal(t, "a", partial.UserAnswer)
	assert.Equal(t, "a, c", partial.CorrectAnswer)
	assert.Equal(t, models.QuestionTypeMultiple, partial.Type)
}

func TestScoreUnansweredQuestion(t *testing.T) {
	result := Score([]models.Question{singleQuestion()}, models.AnswerSubmission{})

	require.Len(t, result.Details, 1)
	assert.Equal(t, NotAnswered, result.Details[0].UserAnswer)
	assert.Equal(t, "b", result.Details[0].CorrectAnswer)
	assert.Equal(t, 0, result.CorrectCount)
	assert.Equal(t, 1, result.IncorrectCount)
}

func TestParseOption(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{"a", 0, false},
		{"C", 2, false},
		{"b)", 1, false},
		{"3", 3, false},
		{float64(2), 2, false},
		{float64(1.5), 0, true},
		{"", 0, true},
		{"ab", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseOption(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestParseSubmission(t *testing.T) {
	questions := []models.Question{singleQuestion(), multipleQuestion()}

	sub, err := ParseSubmission(questions, map[string][]any{
		"0": {"b"},
		"1": {"a", float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sub[0])
	assert.Equal(t, []int{0, 2}, sub[1])

	_, err = ParseSubmission(questions, map[string][]any{"5": {"a"}})
	assert.Error(t, err)

	_, err = ParseSubmission(questions, map[string][]any{"0": {"d"}})
	assert.Error(t, err, "option d is out of range for three options")
}
