package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"quizgenai/internal/models"
	"quizgenai/internal/quizgen"
)

// flexInt accepts 5 as well as "5", since form-driven clients send counts
// as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", data)
	}
	*f = flexInt(n)
	return nil
}

// GenerateRequest is the body of POST /api/quizzes/generate.
type GenerateRequest struct {
	Content            string  `json:"content"`
	TotalQuestions     flexInt `json:"totalQuestions"`
	SingleCorrect      flexInt `json:"singleCorrect"`
	MultipleCorrect    flexInt `json:"multipleCorrect"`
	OptionsPerQuestion flexInt `json:"optionsPerQuestion"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Share              bool    `json:"share"`
}

func (r GenerateRequest) Config() models.QuizConfig {
	return models.QuizConfig{
		TotalQuestions:     int(r.TotalQuestions),
		SingleCorrect:      int(r.SingleCorrect),
		MultipleCorrect:    int(r.MultipleCorrect),
		OptionsPerQuestion: int(r.OptionsPerQuestion),
	}
}

// GenerateResponse is returned by both generation endpoints.
type GenerateResponse struct {
	Quiz        []models.Question `json:"quiz"`
	QuizID      string            `json:"quizId,omitempty"`
	Degraded    bool              `json:"degraded"`
	Attempts    int               `json:"attempts"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
	SourceURL   string            `json:"sourceUrl,omitempty"`
}

// formConfig reads the quiz configuration from multipart form values.
func formConfig(get func(string) string) (models.QuizConfig, error) {
	fields := []struct {
		name string
		dst  *int
	}{
		{"totalQuestions", new(int)},
		{"singleCorrect", new(int)},
		{"multipleCorrect", new(int)},
		{"optionsPerQuestion", new(int)},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(get(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.QuizConfig{}, &quizgen.ConfigError{Reason: fmt.Sprintf("%s must be a whole number", f.name)}
		}
		*f.dst = n
	}
	return models.QuizConfig{
		TotalQuestions:     *fields[0].dst,
		SingleCorrect:      *fields[1].dst,
		MultipleCorrect:    *fields[2].dst,
		OptionsPerQuestion: *fields[3].dst,
	}, nil
}

// CreateQuizRequest is the body of POST /api/quizzes.
type CreateQuizRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []models.Question `json:"questions"`
}

// SubmitRequest is the body of POST /api/quizzes/:quizId/submit. Keys are
// zero-based question indices; values are option letters or indices.
type SubmitRequest struct {
	Answers map[string][]any `json:"answers"`
}

// SubmitResponse is the score of a submission plus the history entry it
// was recorded under.
type SubmitResponse struct {
	HistoryID uuid.UUID `json:"historyId"`
	models.QuizResult
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HistoryResponse splits a user's history the way the history page shows it.
type HistoryResponse struct {
	Taken   []models.HistoryEntry `json:"taken"`
	Created []models.HistoryEntry `json:"created"`
}
