package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"quizgenai/internal/llm"
	"quizgenai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel answers prompts by asking respond for the text of each call.
type scriptedModel struct {
	mu      sync.Mutex
	prompts []string
	respond func(call int, prompt string) (string, error)
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	m.mu.Unlock()
	return m.respond(call, prompt)
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var (
	totalPattern   = regexp.MustCompile(`Generate exactly (\d+) questions`)
	singlePattern  = regexp.MustCompile(`Questions 1 to (\d+): type "single"`)
	optionsPattern = regexp.MustCompile(`exactly (\d+) options`)
)

// obedientAnswer builds a valid answer for whatever the prompt asks for.
func obedientAnswer(prompt string) string {
	total := atoiMatch(totalPattern, prompt)
	singles := atoiMatch(singlePattern, prompt)
	options := atoiMatch(optionsPattern, prompt)

	cfg := models.QuizConfig{TotalQuestions: total, SingleCorrect: singles, MultipleCorrect: total - singles, OptionsPerQuestion: options}
	questions := Fallback(cfg, "model")
	for i := range questions {
		questions[i].Question = fmt.Sprintf("Generated question %d", i+1)
	}
	data, _ := json.Marshal(questions)
	return string(data)
}

func atoiMatch(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func newTestOrchestrator(model llm.Completer, opts ...Option) *Orchestrator {
	client := llm.NewClient(model, llm.WithRetryDelay(0))
	return NewOrchestrator(client, opts...)
}

func assertQuizShape(t *testing.T, questions []models.Question, cfg models.QuizConfig) {
	t.Helper()
	require.Len(t, questions, cfg.TotalQuestions)
	singles := 0
	for i, q := range questions {
		assert.Len(t, q.Options, cfg.OptionsPerQuestion, "question %d", i)
		for _, a := range q.CorrectAnswers {
			assert.True(t, a >= 0 && a < cfg.OptionsPerQuestion, "question %d answer %d", i, a)
		}
		switch q.Type {
		case models.QuestionTypeSingle:
			singles++
			assert.Len(t, q.CorrectAnswers, 1, "question %d", i)
		case models.QuestionTypeMultiple:
			assert.GreaterOrEqual(t, len(q.CorrectAnswers), 2, "question %d", i)
		default:
			t.Errorf("question %d has type %q", i, q.Type)
		}
	}
	assert.Equal(t, cfg.SingleCorrect, singles)
}

func TestGenerateHappyPath(t *testing.T) {
	model := &scriptedModel{respond: func(_ int, p string) (string, error) { return obedientAnswer(p), nil }}
	cfg := models.QuizConfig{TotalQuestions: 4, SingleCorrect: 2, MultipleCorrect: 2, OptionsPerQuestion: 4}

	res, err := newTestOrchestrator(model).Generate(context.Background(), cfg, "Short content about Go.")

	require.NoError(t, err)
	assertQuizShape(t, res.Questions, cfg)
	assert.False(t, res.Degraded)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "Generated question 1", res.Questions[0].Question)
}

func TestGenerateSplitsQuotaAcrossChunks(t *testing.T) {
	model := &scriptedModel{respond: func(_ int, p string) (string, error) { return obedientAnswer(p), nil }}
	cfg := models.QuizConfig{TotalQuestions: 5, SingleCorrect: 3, MultipleCorrect: 2, OptionsPerQuestion: 3}
	content := strings.Repeat("Goroutines are cheap threads managed by the runtime. ", 3)

	res, err := newTestOrchestrator(model, WithChunkSize(60)).Generate(context.Background(), cfg, content)

	require.NoError(t, err)
	assert.Equal(t, 3, model.calls())
	assertQuizShape(t, res.Questions, cfg)
	assert.False(t, res.Degraded)

	// 5 questions over 3 chunks: 2, 2, 1 with singles consumed first.
	assert.Contains(t, model.prompts[0], "Generate exactly 2 questions")
	assert.Contains(t, model.prompts[0], `Questions 1 to 2: type "single"`)
	assert.Contains(t, model.prompts[1], `Questions 1 to 1: type "single"`)
	assert.Contains(t, model.prompts[1], `Questions 2 to 2: type "multiple"`)
	assert.Contains(t, model.prompts[2], "Generate exactly 1 questions")
	assert.NotContains(t, model.prompts[2], `type "single", exactly ONE`)
}

func TestGenerateSkipsChunksWithoutQuota(t *testing.T) {
	model := &scriptedModel{respond: func(_ int, p string) (string, error) { return obedientAnswer(p), nil }}
	cfg := models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 2}
	content := strings.Repeat("One more sentence here. ", 20)

	res, err := newTestOrchestrator(model, WithChunkSize(30)).Generate(context.Background(), cfg, content)

	require.NoError(t, err)
	assert.Equal(t, 1, model.calls())
	assertQuizShape(t, res.Questions, cfg)
}

func TestGenerateFallsBackWhenModelAlwaysFails(t *testing.T) {
	model := &scriptedModel{respond: func(int, string) (string, error) { return "", errors.New("connection refused") }}
	cfg := models.QuizConfig{TotalQuestions: 6, SingleCorrect: 2, MultipleCorrect: 4, OptionsPerQuestion: 5}

	res, err := newTestOrchestrator(model).Generate(context.Background(), cfg, "Anything at all.")

	require.NoError(t, err)
	assertQuizShape(t, res.Questions, cfg)
	assert.True(t, res.Degraded)
	assert.Equal(t, 9, res.Attempts, "three chunk attempts of three calls each")
	assert.Equal(t, 9, model.calls())
	assert.NotEmpty(t, res.Diagnostics)
	assert.True(t, strings.HasPrefix(res.Questions[0].Question, "Fallback Question 1"))
}

func TestGenerateFallsBackOnGarbage(t *testing.T) {
	model := &scriptedModel{respond: func(int, string) (string, error) { return "no json here", nil }}
	cfg := models.QuizConfig{TotalQuestions: 2, SingleCorrect: 1, MultipleCorrect: 1, OptionsPerQuestion: 4}

	res, err := newTestOrchestrator(model).Generate(context.Background(), cfg, "Content.")

	require.NoError(t, err)
	assertQuizShape(t, res.Questions, cfg)
	assert.True(t, res.Degraded)
	assert.Equal(t, 3, model.calls())
}

func TestGenerateAdjustsNearValidOutput(t *testing.T) {
	// Right shape but every question typed "single".
	answer := `[
	  {"question":"A","type":"single","options":["w","x","y","z"],"correctAnswers":[1]},
	  {"question":"B","type":"single","options":["w","x","y","z"],"correctAnswers":[2,3]}
	]`
	model := &scriptedModel{respond: func(int, string) (string, error) { return answer, nil }}
	cfg := models.QuizConfig{TotalQuestions: 2, SingleCorrect: 1, MultipleCorrect: 1, OptionsPerQuestion: 4}

	res, err := newTestOrchestrator(model).Generate(context.Background(), cfg, "Content.")

	require.NoError(t, err)
	assertQuizShape(t, res.Questions, cfg)
	assert.False(t, res.Degraded, "retyping keeps the model's answer keys")
	assert.Equal(t, "B", res.Questions[1].Question)
	assert.Equal(t, []int{2, 3}, res.Questions[1].CorrectAnswers)
	assert.Contains(t, res.Diagnostics, "chunk 1/1 attempt 1: Expected 1 single correct questions, but got 2")
}

func TestGenerateMarksPlaceholderAnswerKeysDegraded(t *testing.T) {
	// B needs at least two answers but the model gave one, so it gets a placeholder key.
	answer := `[
	  {"question":"A","type":"single","options":["w","x","y","z"],"correctAnswers":[1]},
	  {"question":"B","type":"single","options":["w","x","y","z"],"correctAnswers":[2]}
	]`
	model := &scriptedModel{respond: func(int, string) (string, error) { return answer, nil }}
	recorder := &countingRecorder{}
	cfg := models.QuizConfig{TotalQuestions: 2, SingleCorrect: 1, MultipleCorrect: 1, OptionsPerQuestion: 4}

	res, err := newTestOrchestrator(model, WithRecorder(recorder)).Generate(context.Background(), cfg, "Content.")

	require.NoError(t, err)
	assertQuizShape(t, res.Questions, cfg)
	assert.True(t, res.Degraded)
	assert.Equal(t, "B", res.Questions[1].Question)
	assert.Equal(t, []int{0, 1}, res.Questions[1].CorrectAnswers)
	assert.Equal(t, []bool{true}, recorder.degraded)
}

func TestGenerateAcceptsQuestionsObject(t *testing.T) {
	model := &scriptedModel{respond: func(_ int, p string) (string, error) {
		return `{"questions": ` + obedientAnswer(p) + `}`, nil
	}}
	cfg := models.QuizConfig{TotalQuestions: 3, SingleCorrect: 2, MultipleCorrect: 1, OptionsPerQuestion: 4}

	res, err := newTestOrchestrator(model).Generate(context.Background(), cfg, "Content.")

	require.NoError(t, err)
	assertQuizShape(t, res.Questions, cfg)
	assert.False(t, res.Degraded)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "Generated question 1", res.Questions[0].Question)
}

func TestGenerateRetriesAfterMalformedOutput(t *testing.T) {
	model := &scriptedModel{respond: func(call int, p string) (string, error) {
		if call == 1 {
			return "garbage", nil
		}
		return obedientAnswer(p), nil
	}}
	cfg := models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 2}

	res, err := newTestOrchestrator(model).Generate(context.Background(), cfg, "Content.")

	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0], "malformed model output")
}

func TestGenerateRejectsConfigBeforeCallingModel(t *testing.T) {
	model := &scriptedModel{respond: func(int, string) (string, error) { return "[]", nil }}
	orch := newTestOrchestrator(model)

	bad := []models.QuizConfig{
		{TotalQuestions: 3, SingleCorrect: 1, MultipleCorrect: 1, OptionsPerQuestion: 4},
		{TotalQuestions: 2, SingleCorrect: 1, MultipleCorrect: 1, OptionsPerQuestion: 1},
	}
	for _, cfg := range bad {
		_, err := orch.Generate(context.Background(), cfg, "Content.")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}

	_, err := orch.Generate(context.Background(), models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 2}, "   ")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Zero(t, model.calls())
}

func TestGenerateStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := &scriptedModel{respond: func(int, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	cfg := models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 2}

	_, err := newTestOrchestrator(model).Generate(ctx, cfg, "Content.")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, model.calls())
}

type countingRecorder struct {
	outcomes []string
	degraded []bool
}

func (r *countingRecorder) ObserveChunkAttempt(outcome string) { r.outcomes = append(r.outcomes, outcome) }
func (r *countingRecorder) ObserveGeneration(degraded bool)    { r.degraded = append(r.degraded, degraded) }

func TestGenerateReportsToRecorder(t *testing.T) {
	model := &scriptedModel{respond: func(int, string) (string, error) { return "nope", nil }}
	rec := &countingRecorder{}
	cfg := models.QuizConfig{TotalQuestions: 1, SingleCorrect: 1, OptionsPerQuestion: 2}

	_, err := newTestOrchestrator(model, WithRecorder(rec)).Generate(context.Background(), cfg, "Content.")

	require.NoError(t, err)
	assert.Equal(t, []string{OutcomeMalformed, OutcomeMalformed, OutcomeMalformed}, rec.outcomes)
	assert.Equal(t, []bool{true}, rec.degraded)
}
