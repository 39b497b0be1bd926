package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"quizgenai/internal/models"
	"quizgenai/internal/store"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements store.Store on PostgreSQL.
type Queries struct {
	db DBTX
}

var _ store.Store = (*Queries)(nil)

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// --- Users ---

const userColumns = `id, username, email, password_hash, COALESCE(google_id, ''), avatar, is_admin, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GoogleID, &u.Avatar, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = strings.ToLower(user.Email)

	_, err := q.db.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, google_id, avatar, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.PasswordHash, nullableText(user.GoogleID), user.Avatar, user.IsAdmin, user.CreatedAt,
	)
	return translate(err)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (q *Queries) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, store.ErrNotFound
	}
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

func (q *Queries) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// --- Quizzes ---

const quizColumns = `id, creator_id, title, description, questions, degraded, created_at`

func scanQuiz(row pgx.Row) (*models.Quiz, error) {
	var (
		quiz      models.Quiz
		questions []byte
	)
	err := row.Scan(&quiz.ID, &quiz.CreatorID, &quiz.Title, &quiz.Description, &questions, &quiz.Degraded, &quiz.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions of quiz %s: %w", quiz.ID, err)
	}
	return &quiz, nil
}

func (q *Queries) SaveQuiz(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	_, err = q.db.Exec(ctx, `
		INSERT INTO quizzes (id, creator_id, title, description, questions, degraded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			questions = EXCLUDED.questions,
			degraded = EXCLUDED.degraded`,
		quiz.ID, quiz.CreatorID, quiz.Title, quiz.Description, questions, quiz.Degraded, quiz.CreatedAt,
	)
	return translate(err)
}

func (q *Queries) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	return scanQuiz(q.db.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
}

func (q *Queries) ListQuizzesByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Quiz, error) {
	return q.listQuizzes(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
}

func (q *Queries) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	return q.listQuizzes(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at DESC`)
}

func (q *Queries) listQuizzes(ctx context.Context, sql string, args ...any) ([]models.Quiz, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []models.Quiz{}
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *quiz)
	}
	return quizzes, rows.Err()
}

func (q *Queries) DeleteQuiz(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- History ---

const historyColumns = `id, user_id, quiz_id, quiz_title, type, score, total_questions, correct_count, incorrect_count, details, created_at`

func scanHistory(row pgx.Row) (*models.HistoryEntry, error) {
	var (
		e       models.HistoryEntry
		details []byte
	)
	err := row.Scan(&e.ID, &e.UserID, &e.QuizID, &e.QuizTitle, &e.Type, &e.Score,
		&e.TotalQuestions, &e.CorrectCount, &e.IncorrectCount, &details, &e.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if err := json.Unmarshal(details, &e.Details); err != nil {
		return nil, fmt.Errorf("failed to decode history details %s: %w", e.ID, err)
	}
	return &e, nil
}

func (q *Queries) AddHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	details := entry.Details
	if details == nil {
		details = []models.QuestionResult{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode history details: %w", err)
	}

	_, err = q.db.Exec(ctx, `
		INSERT INTO history (id, user_id, quiz_id, quiz_title, type, score, total_questions, correct_count, incorrect_count, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.UserID, entry.QuizID, entry.QuizTitle, string(entry.Type), entry.Score,
		entry.TotalQuestions, entry.CorrectCount, entry.IncorrectCount, encoded, entry.CreatedAt,
	)
	return translate(err)
}

func (q *Queries) GetHistory(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	return scanHistory(q.db.QueryRow(ctx, `SELECT `+historyColumns+` FROM history WHERE id = $1`, id))
}

func (q *Queries) ListHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	rows, err := q.db.Query(ctx, `SELECT `+historyColumns+` FROM history WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
