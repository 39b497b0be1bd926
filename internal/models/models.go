package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType distinguishes single-correct from multiple-correct questions.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"
	QuestionTypeMultiple QuestionType = "multiple"
)

// QuizConfig describes the shape of a quiz to generate.
// SingleCorrect + MultipleCorrect must equal TotalQuestions.
type QuizConfig struct {
	TotalQuestions     int `json:"totalQuestions"`
	SingleCorrect      int `json:"singleCorrect"`
	MultipleCorrect    int `json:"multipleCorrect"`
	OptionsPerQuestion int `json:"optionsPerQuestion"`
}

// Question is a single multiple-choice question. CorrectAnswers holds
// zero-based indices into Options.
type Question struct {
	Question       string       `json:"question"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options"`
	CorrectAnswers []int        `json:"correctAnswers"`
}

// Quiz is a persisted, shareable quiz.
type Quiz struct {
	ID          string     `json:"quizId"`
	CreatorID   uuid.UUID  `json:"creatorId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	Degraded    bool       `json:"degraded"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AnswerSubmission maps a question index to the selected option indices.
// A missing or empty entry means the question was not answered.
type AnswerSubmission map[int][]int

// QuestionResult is the scored outcome of one question.
type QuestionResult struct {
	Question      string       `json:"question"`
	UserAnswer    string       `json:"userAnswer"`
	CorrectAnswer string       `json:"correctAnswer"`
	IsCorrect     bool         `json:"isCorrect"`
	Score         float64      `json:"score"`
	Type          QuestionType `json:"type"`
}

// QuizResult is the scored outcome of a whole submission.
type QuizResult struct {
	Score          float64          `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	CorrectCount   int              `json:"correctCount"`
	IncorrectCount int              `json:"incorrectCount"`
	Details        []QuestionResult `json:"details"`
}

// HistoryType labels how a history entry came about.
type HistoryType string

const (
	HistoryTaken       HistoryType = "taken"
	HistoryCreated     HistoryType = "created"
	HistorySharedTaken HistoryType = "shared-taken"
)

// HistoryEntry is one record in a user's quiz history.
type HistoryEntry struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"userId"`
	QuizID         string           `json:"quizId"`
	QuizTitle      string           `json:"quizTitle"`
	Type           HistoryType      `json:"type"`
	Score          float64          `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	CorrectCount   int              `json:"correctCount"`
	IncorrectCount int              `json:"incorrectCount"`
	Details        []QuestionResult `json:"details,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// User is an account. PasswordHash is empty for Google-only accounts.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GenerationResult is what the generation pipeline hands back to callers.
type GenerationResult struct {
	Questions   []Question `json:"quiz"`
	Degraded    bool       `json:"degraded"`
	Attempts    int        `json:"attempts"`
	Diagnostics []string   `json:"diagnostics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
