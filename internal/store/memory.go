package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizgenai/internal/models"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]models.User
	quizzes map[string]models.Quiz
	history map[uuid.UUID]models.HistoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[uuid.UUID]models.User),
		quizzes: make(map[string]models.Quiz),
		history: make(map[uuid.UUID]models.HistoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrConflict
		}
		if user.GoogleID != "" && u.GoogleID == user.GoogleID {
			return ErrConflict
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *MemoryStore) GetUserByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return googleID != "" && u.GoogleID == googleID })
}

func (s *MemoryStore) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b models.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return users, nil
}

func (s *MemoryStore) SaveQuiz(_ context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = s.now().UTC()
	}
	s.quizzes[quiz.ID] = cloneQuiz(*quiz)
	return nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id string) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return nil, ErrNotFound
	}
	q = cloneQuiz(q)
	return &q, nil
}

func (s *MemoryStore) ListQuizzesByCreator(_ context.Context, creatorID uuid.UUID) ([]models.Quiz, error) {
	return s.listQuizzes(func(q models.Quiz) bool { return q.CreatorID == creatorID }), nil
}

func (s *MemoryStore) ListQuizzes(_ context.Context) ([]models.Quiz, error) {
	return s.listQuizzes(func(models.Quiz) bool { return true }), nil
}

func (s *MemoryStore) listQuizzes(keep func(models.Quiz) bool) []models.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quizzes := []models.Quiz{}
	for _, q := range s.quizzes {
		if keep(q) {
			quizzes = append(quizzes, cloneQuiz(q))
		}
	}
	slices.SortFunc(quizzes, func(a, b models.Quiz) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return quizzes
}

func (s *MemoryStore) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[id]; !ok {
		return ErrNotFound
	}
	delete(s.quizzes, id)
	return nil
}

func (s *MemoryStore) AddHistory(_ context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	e := *entry
	e.Details = slices.Clone(entry.Details)
	s.history[e.ID] = e
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Details = slices.Clone(e.Details)
	return &e, nil
}

func (s *MemoryStore) ListHistory(_ context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []models.HistoryEntry{}
	for _, e := range s.history {
		if e.UserID == userID {
			e.Details = slices.Clone(e.Details)
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b models.HistoryEntry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return entries, nil
}

// cloneQuiz copies q down to each question's option and answer slices, so
// stored quizzes never share memory with callers.
func cloneQuiz(q models.Quiz) models.Quiz {
	if q.Questions == nil {
		return q
	}
	questions := make([]models.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = slices.Clone(question.Options)
		question.CorrectAnswers = slices.Clone(question.CorrectAnswers)
		questions[i] = question
	}
	q.Questions = questions
	return q
}
