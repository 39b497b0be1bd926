package quizgen

import (
	"testing"

	"quizgenai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeQuestionConfig = models.QuizConfig{
	TotalQuestions:     3,
	SingleCorrect:      2,
	MultipleCorrect:    1,
	OptionsPerQuestion: 4,
}

func mustParse(t *testing.T, raw string) any {
	t.Helper()
	v, err := Parse(raw)
	require.NoError(t, err)
	return v
}

const validCandidate = `[
  {"question":"Q1","type":"single","options":["a","b","c","d"],"correctAnswers":[0]},
  {"question":"Q2","type":"single","options":["a","b","c","d"],"correctAnswers":[3]},
  {"question":"Q3","type":"multiple","options":["a","b","c","d"],"correctAnswers":[1,2]}
]`

func TestValidateAcceptsValidCandidate(t *testing.T) {
	res := Validate(mustParse(t, validCandidate), threeQuestionConfig)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Violations)
	assert.NoError(t, res.Err())
}

func TestValidateRejectsNonArray(t *testing.T) {
	res := Validate(map[string]any{"title": "x"}, threeQuestionConfig)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Expected an array of questions, but got object"}, res.Violations)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	raw := `[
	  {"question":"Q1","type":"single","options":["a","b","c"],"correctAnswers":[0,1]},
	  {"question":"","type":"multiple","options":["a","b","c","d"],"correctAnswers":[4]}
	]`
	res := Validate(mustParse(t, raw), threeQuestionConfig)

	require.False(t, res.Valid)
	assert.Equal(t, []string{
		"Expected 3 questions, but got 2",
		"Expected 2 single correct questions, but got 1",
		"Question 1: Expected 4 options, but got 3",
		"Question 1: single correct question must have exactly 1 correct answer, but got 2",
		"Question 2: question text must be a non-empty string",
		"Question 2: multiple correct question must have at least 2 correct answers, but got 1",
		"Question 2: correctAnswers[0] = 4 is out of bounds (must be between 0 and 3)",
	}, res.Violations)

	var vErr *ValidationError
	require.ErrorAs(t, res.Err(), &vErr)
	assert.ErrorIs(t, res.Err(), ErrValidationFailed)
	assert.Len(t, vErr.Violations, 7)
}

func TestValidateAnswerChecks(t *testing.T) {
	tests := []struct {
		name    string
		answers string
		want    string
	}{
		{"empty", `[]`, "Question 3: correctAnswers must be a non-empty array"},
		{"fractional", `[1, 1.5]`, "Question 3: correctAnswers[1] = 1.5 is not an integer index"},
		{"duplicate", `[2, 2]`, "Question 3: correctAnswers contains duplicate index 2"},
		{"negative", `[-1, 2]`, "Question 3: correctAnswers[0] = -1 is out of bounds (must be between 0 and 3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `[
			  {"question":"Q1","type":"single","options":["a","b","c","d"],"correctAnswers":[0]},
			  {"question":"Q2","type":"single","options":["a","b","c","d"],"correctAnswers":[3]},
			  {"question":"Q3","type":"multiple","options":["a","b","c","d"],"correctAnswers":` + tt.answers + `}
			]`
			res := Validate(mustParse(t, raw), threeQuestionConfig)
			assert.False(t, res.Valid)
			assert.Contains(t, res.Violations, tt.want)
		})
	}
}

func TestValidateQuestionsMatchesGenericValidation(t *testing.T) {
	questions, err := DecodeQuestions(mustParse(t, validCandidate))
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, []int{1, 2}, questions[2].CorrectAnswers)
	assert.True(t, ValidateQuestions(questions, threeQuestionConfig).Valid)

	questions[0].Options = questions[0].Options[:2]
	assert.False(t, ValidateQuestions(questions, threeQuestionConfig).Valid)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.QuizConfig
		ok   bool
	}{
		{"valid", models.QuizConfig{TotalQuestions: 5, SingleCorrect: 3, MultipleCorrect: 2, OptionsPerQuestion: 4}, true},
		{"sum mismatch", models.QuizConfig{TotalQuestions: 5, SingleCorrect: 3, MultipleCorrect: 1, OptionsPerQuestion: 4}, false},
		{"too few options", models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 1}, false},
		{"zero questions", models.QuizConfig{OptionsPerQuestion: 4}, false},
		{"negative count", models.QuizConfig{TotalQuestions: 1, SingleCorrect: 2, MultipleCorrect: -1, OptionsPerQuestion: 4}, false},
		{"too many options", models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 27}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	err := ValidateConfig(models.QuizConfig{TotalQuestions: 5, SingleCorrect: 3, MultipleCorrect: 1, OptionsPerQuestion: 4})
	assert.EqualError(t, err, "Single + Multiple correct questions must equal Total questions")
}

func TestValidateAuthored(t *testing.T) {
	good := []models.Question{
		{Question: "Pick many", Type: models.QuestionTypeMultiple, Options: []string{"a", "b", "c"}, CorrectAnswers: []int{0, 2}},
		{Question: "Pick one", Type: models.QuestionTypeSingle, Options: []string{"yes", "no"}, CorrectAnswers: []int{1}},
	}
	assert.True(t, ValidateAuthored(good).Valid)

	res := ValidateAuthored(nil)
	assert.Equal(t, []string{"A quiz needs at least one question"}, res.Violations)

	bad := []models.Question{
		{Question: " ", Type: models.QuestionTypeSingle, Options: []string{"a", ""}, CorrectAnswers: []int{0, 1}},
		{Question: "Q", Type: models.QuestionTypeMultiple, Options: []string{"a"}, CorrectAnswers: []int{0, 0, 3}},
	}
	res = ValidateAuthored(bad)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{
		"Question 1: question text must be a non-empty string",
		"Question 1: options[1] must be a non-empty string",
		"Question 1: single correct question must have exactly 1 correct answer, but got 2",
		"Question 2: must have between 2 and 26 options, but got 1",
		"Question 2: correctAnswers contains duplicate index 0",
		"Question 2: correctAnswers[2] = 3 is out of bounds (must be between 0 and 0)",
	}, res.Violations)
}
