package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizgenai/internal/events"
	"quizgenai/internal/extract"
	"quizgenai/internal/models"
	"quizgenai/internal/quizgen"
)

const defaultGeneratedTitle = "Generated Quiz"

// HandleGenerateQuiz generates a quiz from text posted as JSON.
func (h *Handler) HandleGenerateQuiz(c *gin.Context) {
	// 1. Get User ID from context (set by AuthRequired middleware)
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	// 2. Bind request
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// 3. Generate and respond
	resp, err := h.generate(c, userID, req.Config(), req.Content, req.Title, req.Description, req.Share)
	if err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to generate quiz", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGenerateFromUpload generates a quiz from an uploaded PDF or image, or
// from the transcript of a YouTube video.
func (h *Handler) HandleGenerateFromUpload(c *gin.Context) {
	// 1. Get User ID from context
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	// 2. Parse Multipart Form Data
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, extract.MaxUploadSize+1<<20)
	if err := c.Request.ParseMultipartForm(extract.MaxUploadSize); err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Failed to parse multipart form", err)
		return
	}
	cfg, err := formConfig(c.PostForm)
	if err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid quiz configuration", err)
		return
	}

	// 3. Extract source text
	var (
		content   string
		sourceURL string
	)
	if videoURL := strings.TrimSpace(c.PostForm("videoUrl")); videoURL != "" {
		content, err = h.Extractor.FromVideo(c.Request.Context(), videoURL)
		if err != nil {
			h.handleError(c, userID, statusFor(err), "Failed to read video transcript", err)
			return
		}
	} else {
		var filename string
		var data []byte
		filename, data, err = readFormFile(c, "file")
		if err != nil {
			h.handleError(c, userID, http.StatusBadRequest, "Either a file or a videoUrl is required", err)
			return
		}
		content, err = h.Extractor.FromFile(c.Request.Context(), filename, c.PostForm("mimeType"), data)
		if err != nil {
			h.handleError(c, userID, statusFor(err), fmt.Sprintf("Failed to extract text from %s", filename), err)
			return
		}
		sourceURL = h.archiveSource(c, userID, filename, data)
	}

	// Extra instructions typed next to the upload are appended to the source.
	if extra := strings.TrimSpace(c.PostForm("content")); extra != "" {
		content = content + "\n\n" + extra
	}

	// 4. Generate and respond
	resp, err := h.generate(c, userID, cfg, content, c.PostForm("title"), c.PostForm("description"), c.PostForm("share") == "true")
	if err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to generate quiz", err)
		return
	}
	resp.SourceURL = sourceURL
	c.JSON(http.StatusOK, resp)
}

// HandleExtract returns the text of an uploaded file without generating.
func (h *Handler) HandleExtract(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, extract.MaxUploadSize+1<<20)
	filename, data, err := readFormFile(c, "file")
	if err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "No file uploaded", err)
		return
	}

	text, err := h.Extractor.FromFile(c.Request.Context(), filename, c.PostForm("mimeType"), data)
	if err != nil {
		h.handleError(c, userID, statusFor(err), fmt.Sprintf("Failed to extract text from %s", filename), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// HandleCreateQuiz saves a hand-written quiz.
func (h *Handler) HandleCreateQuiz(c *gin.Context) {
	// 1. Get User ID from context
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	// 2. Bind and validate
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid quiz", errors.New("title is required"))
		return
	}
	if err := quizgen.ValidateAuthored(req.Questions).Err(); err != nil {
		h.handleError(c, userID, http.StatusBadRequest, "Invalid quiz", err)
		return
	}

	// 3. Save
	quiz := &models.Quiz{
		CreatorID:   userID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Questions:   req.Questions,
	}
	if err := h.saveQuiz(c, quiz); err != nil {
		h.handleError(c, userID, http.StatusInternalServerError, "Failed to save quiz", err)
		return
	}

	h.Events.Publish(c.Request.Context(), events.Event{
		Type:           events.QuizCreated,
		QuizID:         quiz.ID,
		UserID:         userID.String(),
		TotalQuestions: len(quiz.Questions),
	})
	h.Log.Info("quiz created", zap.String("quiz_id", quiz.ID), zap.String("user_id", userID.String()))
	c.JSON(http.StatusCreated, gin.H{"quizId": quiz.ID})
}

// HandleGetQuiz loads a shared quiz. It needs no authentication.
func (h *Handler) HandleGetQuiz(c *gin.Context) {
	quizID := c.Param("quizId")
	quiz, err := h.Store.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		h.handleError(c, uuid.Nil, statusFor(err), "Failed to load quiz", err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// HandleListUserQuizzes lists the quizzes the caller created.
func (h *Handler) HandleListUserQuizzes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	quizzes, err := h.Store.ListQuizzesByCreator(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, userID, http.StatusInternalServerError, "Failed to list quizzes", err)
		return
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	c.JSON(http.StatusOK, quizzes)
}

// HandleDeleteQuiz deletes a quiz. Only its creator or an admin may do so.
func (h *Handler) HandleDeleteQuiz(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	quizID := c.Param("quizId")

	quiz, err := h.Store.GetQuiz(ctx, quizID)
	if err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to load quiz", err)
		return
	}
	if quiz.CreatorID != userID && !isAdmin(c) {
		h.handleError(c, userID, http.StatusForbidden, "Not allowed to delete this quiz", errors.New("only the creator can delete a quiz"))
		return
	}
	if err := h.Store.DeleteQuiz(ctx, quizID); err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to delete quiz", err)
		return
	}
	h.Log.Info("quiz deleted", zap.String("quiz_id", quizID), zap.String("user_id", userID.String()))
	c.Status(http.StatusNoContent)
}

// generate runs the pipeline, consulting the cache first, and persists the
// quiz when share is set.
func (h *Handler) generate(c *gin.Context, userID uuid.UUID, cfg models.QuizConfig, content, title, description string, share bool) (GenerateResponse, error) {
	ctx := c.Request.Context()

	result, hit := h.Cache.Get(ctx, cfg, content)
	if hit {
		h.Log.Info("generation served from cache", zap.String("user_id", userID.String()))
	} else {
		var err error
		result, err = h.Generator.Generate(ctx, cfg, content)
		if err != nil {
			return GenerateResponse{}, err
		}
		h.Cache.Put(ctx, cfg, content, result)
	}

	resp := GenerateResponse{
		Quiz:        result.Questions,
		Degraded:    result.Degraded,
		Attempts:    result.Attempts,
		Diagnostics: result.Diagnostics,
	}

	if share {
		title = strings.TrimSpace(title)
		if title == "" {
			title = defaultGeneratedTitle
		}
		quiz := &models.Quiz{
			CreatorID:   userID,
			Title:       title,
			Description: strings.TrimSpace(description),
			Questions:   result.Questions,
			Degraded:    result.Degraded,
		}
		if err := h.saveQuiz(c, quiz); err != nil {
			return GenerateResponse{}, fmt.Errorf("failed to save generated quiz: %w", err)
		}
		resp.QuizID = quiz.ID
	}

	h.Events.Publish(ctx, events.Event{
		Type:           events.QuizGenerated,
		QuizID:         resp.QuizID,
		UserID:         userID.String(),
		TotalQuestions: len(result.Questions),
		Degraded:       result.Degraded,
		Attempts:       result.Attempts,
	})
	h.Log.Info("quiz generated",
		zap.String("user_id", userID.String()),
		zap.Int("questions", len(result.Questions)),
		zap.Bool("degraded", result.Degraded),
		zap.Bool("cached", hit),
	)
	return resp, nil
}

// saveQuiz stores quiz and records a created history entry for its author.
func (h *Handler) saveQuiz(c *gin.Context, quiz *models.Quiz) error {
	ctx := c.Request.Context()
	if err := h.Store.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	entry := &models.HistoryEntry{
		UserID:         quiz.CreatorID,
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		Type:           models.HistoryCreated,
		TotalQuestions: len(quiz.Questions),
	}
	if err := h.Store.AddHistory(ctx, entry); err != nil {
		h.Log.Warn("failed to record created history entry", zap.String("quiz_id", quiz.ID), zap.Error(err))
	}
	return nil
}

// archiveSource uploads the original file to object storage. Failures are
// logged and otherwise ignored.
func (h *Handler) archiveSource(c *gin.Context, userID uuid.UUID, filename string, data []byte) string {
	if h.Archive == nil {
		return ""
	}
	url, err := h.Archive.UploadSource(c.Request.Context(), userID, uuid.New(), filename, bytes.NewReader(data))
	if err != nil {
		h.Log.Warn("failed to archive uploaded source", zap.String("file", filename), zap.Error(err))
		return ""
	}
	return url
}

func readFormFile(c *gin.Context, field string) (string, []byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open uploaded file %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, extract.MaxUploadSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read uploaded file %s: %w", fileHeader.Filename, err)
	}
	return fileHeader.Filename, data, nil
}
