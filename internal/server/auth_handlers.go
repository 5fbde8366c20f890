package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tasteboard/backend/internal/users"
)

type signupRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserName string `json:"user_name"`
}

type signupResponsePayload struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
}

func (h *httpHandler) handleSignup(c *gin.Context) {
	var request signupRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		strings.TrimSpace(request.Email) == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.accounts.Signup(c.Request.Context(), request.Email, request.Password, request.UserName)
	if errors.Is(err, users.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	}
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err != nil {
		h.logger.Error("signup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup_failed"})
		return
	}

	c.JSON(http.StatusCreated, signupResponsePayload{
		UserID:   account.ID,
		Email:    account.Email,
		UserName: account.UserName,
	})
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponsePayload struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		strings.TrimSpace(request.Email) == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionPayload(session))
}

type refreshRequestPayload struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *httpHandler) handleRefresh(c *gin.Context) {
	var request refreshRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.accounts.Refresh(c.Request.Context(), request.RefreshToken)
	if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrSessionRevoked) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err != nil {
		h.logger.Error("refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionPayload(session))
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.accounts.Logout(c.Request.Context(), userID); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGoogleLogin(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "google_not_configured"})
		return
	}
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	state, err := h.idProvider.NewID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_failed"})
		return
	}
	stateKey := oauthStateKeyPrefix + state
	stateValue := []byte(strconv.FormatInt(userID, 10))
	if err := h.cache.Set(c.Request.Context(), stateKey, stateValue, oauthStateTTL); err != nil {
		h.logger.Error("oauth state store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_url": h.google.AuthURL(state)})
}

func (h *httpHandler) handleGoogleCallback(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "google_not_configured"})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	stateKey := oauthStateKeyPrefix + state
	stored, ok, err := h.cache.Get(c.Request.Context(), stateKey)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown_state"})
		return
	}
	_ = h.cache.Delete(c.Request.Context(), stateKey)

	userID, err := strconv.ParseInt(string(stored), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown_state"})
		return
	}

	accessToken, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("google code exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "exchange_failed"})
		return
	}

	tokenKey := googleTokenKeyPrefix + strconv.FormatInt(userID, 10)
	if err := h.cache.Set(c.Request.Context(), tokenKey, []byte(accessToken), googleTokenTTL); err != nil {
		h.logger.Error("google token store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_store_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func sessionPayload(session users.Session) sessionResponsePayload {
	return sessionResponsePayload{
		AccessToken:      session.AccessToken,
		ExpiresIn:        session.AccessExpiresIn,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresIn: session.RefreshExpiresIn,
		TokenType:        "Bearer",
	}
}
