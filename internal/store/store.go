// Package store defines persistence for users, quizzes and quiz history.
// The PostgreSQL implementation lives in internal/db; MemoryStore backs tests
// and deployments without a database.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"quizgenai/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type Store interface {
	UserStore
	QuizStore
	HistoryStore
}

type UserStore interface {
	// CreateUser assigns ID and CreatedAt when unset. A duplicate email
	// returns ErrConflict.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type QuizStore interface {
	// SaveQuiz assigns ID and CreatedAt when unset.
	SaveQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, id string) (*models.Quiz, error)
	ListQuizzesByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Quiz, error)
	ListQuizzes(ctx context.Context) ([]models.Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error
}

type HistoryStore interface {
	AddHistory(ctx context.Context, entry *models.HistoryEntry) error
	GetHistory(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error)
	// ListHistory returns the user's entries newest first.
	ListHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error)
}
