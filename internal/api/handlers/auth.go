package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"quizgenai/internal/auth"
	"quizgenai/internal/models"
	"quizgenai/internal/store"
)

// HandleRegister creates a password account and returns a token for it.
func (h *Handler) HandleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, uuid.Nil, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.handleError(c, uuid.Nil, http.StatusBadRequest, "Invalid password", err)
		return
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			h.handleError(c, uuid.Nil, http.StatusConflict, "User already exists", err)
			return
		}
		h.handleError(c, uuid.Nil, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	h.Log.Info("user registered", zap.String("user_id", user.ID.String()))

	h.respondWithToken(c, http.StatusCreated, user)
}

// HandleLogin checks email and password and returns a token.
func (h *Handler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, uuid.Nil, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same response as a wrong password.
			err = auth.ErrInvalidCredentials
		}
		h.handleError(c, uuid.Nil, statusFor(err), "Login failed", err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.handleError(c, user.ID, http.StatusUnauthorized, "Login failed", err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// HandleMe returns the authenticated user.
func (h *Handler) HandleMe(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	user, err := h.Store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, userID, statusFor(err), "Failed to load user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// HandleAuthStatus reports whether the request carries a valid token. It
// never fails with 401 so the frontend can call it unconditionally.
func (h *Handler) HandleAuthStatus(c *gin.Context) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	claims, err := h.Tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	user, err := h.Store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

// HandleLogout clears the login session. Tokens are stateless, so the client
// discards its own copy.
func (h *Handler) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.Log.Warn("failed to clear session during logout", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// HandleGoogleLogin initiates the Google OAuth flow.
func (h *Handler) HandleGoogleLogin(c *gin.Context) {
	if h.OauthConfig == nil {
		h.handleError(c, uuid.Nil, http.StatusNotFound, "Google login is not configured", errors.New("missing Google OAuth client"))
		return
	}
	session := sessions.Default(c)

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		h.handleError(c, uuid.Nil, http.StatusInternalServerError, "Failed to generate state", err)
		return
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	session.Set(OauthStateSessionKey, state)
	if err := session.Save(); err != nil {
		h.handleError(c, uuid.Nil, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.OauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// HandleGoogleCallback handles the redirect back from Google, creating the
// user on first login, and redirects to the frontend with a token.
func (h *Handler) HandleGoogleCallback(c *gin.Context) {
	if h.OauthConfig == nil {
		h.handleError(c, uuid.Nil, http.StatusNotFound, "Google login is not configured", errors.New("missing Google OAuth client"))
		return
	}
	ctx := c.Request.Context()
	session := sessions.Default(c)

	// 1. Check state
	savedState, _ := session.Get(OauthStateSessionKey).(string)
	state := c.Query("state")
	if state == "" || savedState != state {
		h.handleError(c, uuid.Nil, http.StatusUnauthorized, "Invalid state parameter", errors.New("oauth state mismatch"))
		return
	}
	session.Delete(OauthStateSessionKey)
	if err := session.Save(); err != nil {
		h.Log.Warn("failed to clear oauth state", zap.Error(err))
	}

	// 2. Exchange code
	token, err := h.OauthConfig.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.handleError(c, uuid.Nil, http.StatusUnauthorized, "Failed to exchange code", err)
		return
	}

	// 3. Fetch profile
	oauth2Service, err := oauth2api.NewService(ctx, option.WithHTTPClient(h.OauthConfig.Client(ctx, token)))
	if err != nil {
		h.handleError(c, uuid.Nil, http.StatusInternalServerError, "Failed to create OAuth2 service", err)
		return
	}
	userinfo, err := oauth2Service.Userinfo.V2.Me.Get().Do()
	if err != nil {
		h.handleError(c, uuid.Nil, http.StatusBadGateway, "Failed to get user info", err)
		return
	}

	// 4. Find or create the user
	user, err := h.googleUser(c, userinfo)
	if err != nil {
		h.handleError(c, uuid.Nil, http.StatusInternalServerError, "Failed to load user profile", err)
		return
	}

	// 5. Redirect with token
	signed, err := h.Tokens.Issue(user)
	if err != nil {
		h.handleError(c, user.ID, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	target := strings.TrimSuffix(h.FrontendURL, "/") + "/auth/callback?" + url.Values{"token": {signed}}.Encode()
	c.Redirect(http.StatusTemporaryRedirect, target)
}

func (h *Handler) googleUser(c *gin.Context, info *oauth2api.Userinfo) (*models.User, error) {
	ctx := c.Request.Context()

	user, err := h.Store.GetUserByGoogleID(ctx, info.Id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// An account registered with a password under the same email signs in
	// as that account.
	user, err = h.Store.GetUserByEmail(ctx, info.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username := info.Name
	if username == "" {
		username, _, _ = strings.Cut(info.Email, "@")
	}
	user = &models.User{
		Username: username,
		Email:    strings.ToLower(info.Email),
		GoogleID: info.Id,
		Avatar:   info.Picture,
	}
	if err := h.Store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	h.Log.Info("user signed up with Google", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *models.User) {
	signed, err := h.Tokens.Issue(user)
	if err != nil {
		h.handleError(c, user.ID, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	c.JSON(status, AuthResponse{Token: signed, User: user})
}
