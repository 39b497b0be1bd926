package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"quizgenai/internal/auth"
	"quizgenai/internal/cache"
	"quizgenai/internal/events"
	"quizgenai/internal/extract"
	"quizgenai/internal/llm"
	"quizgenai/internal/models"
	"quizgenai/internal/quizgen"
	"quizgenai/internal/r2"
	"quizgenai/internal/store"
)

// Context keys set by the auth middleware.
const (
	UserIDKey = "userID"
	ClaimsKey = "claims"
)

// Session keys for the Google login flow.
const OauthStateSessionKey = "oauthstate"

// QuizGenerator runs the generation pipeline. *quizgen.Orchestrator
// implements it.
type QuizGenerator interface {
	Generate(ctx context.Context, cfg models.QuizConfig, content string) (models.GenerationResult, error)
}

// SourceExtractor reads text out of uploaded material. *extract.Extractor
// implements it.
type SourceExtractor interface {
	FromFile(ctx context.Context, filename, mimeType string, data []byte) (string, error)
	FromVideo(ctx context.Context, videoURL string) (string, error)
}

// Dependencies are the collaborators a Handler needs. Archive, Cache,
// Events and OauthConfig may be nil.
type Dependencies struct {
	OauthConfig *oauth2.Config
	Store       store.Store
	Generator   QuizGenerator
	Extractor   SourceExtractor
	Archive     *r2.Client
	Cache       *cache.GenerationCache
	Events      *events.Publisher
	Tokens      *auth.Tokens
	FrontendURL string
	Log         *zap.Logger
}

type Handler struct {
	Dependencies
}

func NewHandler(deps Dependencies) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Handler{Dependencies: deps}
}

// currentUserID reads the user id the auth middleware stored.
func (h *Handler) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDValue, exists := c.Get(UserIDKey)
	if !exists {
		h.handleError(c, uuid.Nil, http.StatusUnauthorized, "User ID not found in context", errors.New("user not authenticated"))
		return uuid.Nil, false
	}
	userID, ok := userIDValue.(uuid.UUID)
	if !ok {
		h.handleError(c, uuid.Nil, http.StatusInternalServerError, "User ID in context is not a UUID", errors.New("invalid user ID type in context"))
		return uuid.Nil, false
	}
	return userID, true
}

func isAdmin(c *gin.Context) bool {
	claims, ok := c.Get(ClaimsKey)
	if !ok {
		return false
	}
	cl, ok := claims.(*auth.Claims)
	return ok && cl.IsAdmin
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, quizgen.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, llm.ErrGenerationUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleError logs err and aborts with {error, details}.
func (h *Handler) handleError(c *gin.Context, userID uuid.UUID, statusCode int, errorContext string, err error) {
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", statusCode),
		zap.Error(err),
	}
	if userID != uuid.Nil {
		fields = append(fields, zap.String("user_id", userID.String()))
	}
	if statusCode >= http.StatusInternalServerError {
		h.Log.Error(errorContext, fields...)
	} else {
		h.Log.Warn(errorContext, fields...)
	}

	details := err.Error()
	if errors.Is(err, extract.ErrExtractionFailed) {
		details += ". Try a different source format, for example paste the text directly or upload a clearer image."
	}
	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Error: errorContext, Details: details})
}
