package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quizgenai/internal/models"
)

func (h *Handler) HandleAdminListUsers(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, userID, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) HandleAdminListQuizzes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	quizzes, err := h.Store.ListQuizzes(c.Request.Context())
	if err != nil {
		h.handleError(c, userID, http.StatusInternalServerError, "Failed to list quizzes", err)
		return
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	c.JSON(http.StatusOK, quizzes)
}
