package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizgenai/internal/events"
	"quizgenai/internal/models"
	"quizgenai/internal/scoring"
)

// HandleSubmitQuiz scores a submission and appends it to the caller's history.
func (h *Handler) HandleSubmitQuiz(c *gin.Context) {
	// 1. Get User ID from context
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	quizID := c.Param("quizId")

	// 2. Load the quiz
	quiz, err := h.Store.GetQuiz(ctx, quizID)
	if err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to load quiz", err)
		return
	}

	// 3. Bind and parse answers
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	submission, err := scoring.ParseSubmission(quiz.Questions, req.Answers)
	if err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid answers", err)
		return
	}

	// 4. Score
	result := scoring.Score(quiz.Questions, submission)

	// 5. Record history
	historyType := models.HistorySharedTaken
	if quiz.CreatorID == userID {
		historyType = models.HistoryTaken
	}
	entry := &models.HistoryEntry{
		UserID:         userID,
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		Type:           historyType,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		CorrectCount:   result.CorrectCount,
		IncorrectCount: result.IncorrectCount,
		Details:        result.Details,
	}
	if err := h.Store.AddHistory(ctx, entry); err != nil {
		h.handleError(c, userID, http.StatusInternalServerError, "Failed to save result", err)
		return
	}

	score := result.Score
	h.Events.Publish(ctx, events.Event{
		Type:           events.QuizSubmitted,
		QuizID:         quiz.ID,
		UserID:         userID.String(),
		TotalQuestions: result.TotalQuestions,
		Score:          &score,
	})
	h.Log.Info("quiz submitted",
		zap.String("quiz_id", quiz.ID),
		zap.String("user_id", userID.String()),
		zap.Float64("score", result.Score),
	)

	c.JSON(http.StatusOK, SubmitResponse{HistoryID: entry.ID, QuizResult: result})
}

// HandleListHistory returns the caller's history split into taken and
// created quizzes.
func (h *Handler) HandleListHistory(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.Store.ListHistory(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, userID, http.StatusInternalServerError, "Failed to list history", err)
		return
	}

	resp := HistoryResponse{
		Taken:   []models.HistoryEntry{},
		Created: []models.HistoryEntry{},
	}
	for _, entry := range entries {
		if entry.Type == models.HistoryCreated {
			resp.Created = append(resp.Created, entry)
		} else {
			resp.Taken = append(resp.Taken, entry)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGetHistoryEntry returns one of the caller's own history entries.
func (h *Handler) HandleGetHistoryEntry(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid history entry ID", err)
		return
	}

	entry, err := h.Store.GetHistory(c.Request.Context(), entryID)
	if err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to load history entry", err)
		return
	}
	if entry.UserID != userID {
		h.handleError(c, userID, http.StatusForbidden, "Not allowed to view this history entry", errors.New("history entry belongs to another user"))
		return
	}
	c.JSON(http.StatusOK, entry)
}
