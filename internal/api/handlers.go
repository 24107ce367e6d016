package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"planora/internal/agent"
	"planora/internal/auth"
	"planora/internal/models"
	"planora/internal/planner"
	"planora/internal/worker"
)

// Handler wires HTTP routes to the planner and the agent orchestrator.
type Handler struct {
	planner      *planner.Service
	auth         *auth.Service
	orchestrator *agent.Orchestrator
}

// NewHandler constructs a Handler instance.
func NewHandler(plannerService *planner.Service, authService *auth.Service, orchestrator *agent.Orchestrator) *Handler {
	return &Handler{
		planner:      plannerService,
		auth:         authService,
		orchestrator: orchestrator,
	}
}

// check token userID is match with param userID
func (h *Handler) requirePathUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.UserIDFromContext(c)
		if !ok || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		paramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || paramID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		if paramID != userID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
			return
		}
		c.Next()
	}
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)
	authMW := h.auth.Middleware()
	userRoutes := api.Group("/users/:id")
	userRoutes.Use(authMW, h.requirePathUser(), h.auth.CSRFMiddleware())
	userRoutes.POST("/logout", h.logoutUser)
	chatRoutes := api.Group("/chat")
	chatRoutes.Use(authMW)
	chatRoutes.POST("", h.auth.CSRFMiddleware(), h.chat)
	chatRoutes.GET("/messages", h.chatMessages)
}

// User create&login interface
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.planner.RegisterUser(c.Request.Context(), req.Email, req.Password, models.Persona(req.UserType))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"user_type":  user.UserType,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.planner.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"user_type":  user.UserType,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

// Chat interface
type chatMessagePayload struct {
	ID    string               `json:"id,omitempty"`
	Role  models.Role          `json:"role"`
	Parts []models.MessagePart `json:"parts"`
}

type chatRequest struct {
	Messages     []chatMessagePayload `json:"messages"`
	AgentType    models.AgentType     `json:"agentType"`
	EventID      string               `json:"eventId,omitempty"`
	VenueID      string               `json:"venueId,omitempty"`
	SystemPrompt string               `json:"systemPrompt,omitempty"`
	ID           string               `json:"id,omitempty"`
}

// lastUserMessage pulls the newest user message out of the request body.
func lastUserMessage(messages []chatMessagePayload) (id, text string) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != models.RoleUser {
			continue
		}
		msg := models.ChatMessage{Parts: messages[i].Parts}
		return messages[i].ID, msg.Text()
	}
	return "", ""
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrUnauthenticated):
		return http.StatusUnauthorized, "authorization required"
	case errors.Is(err, agent.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, agent.ErrInvalidScope):
		return http.StatusBadRequest, "missing required parameters"
	case errors.Is(err, agent.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, agent.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, worker.ErrBusy):
		return http.StatusTooManyRequests, "server is busy, please retry"
	}
	return http.StatusInternalServerError, "internal error"
}

func (h *Handler) chat(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	messageID, userText := lastUserMessage(req.Messages)

	turn, err := h.orchestrator.Prepare(c.Request.Context(), agent.TurnRequest{
		UserID:       userID,
		AgentType:    req.AgentType,
		EventID:      req.EventID,
		VenueID:      req.VenueID,
		ChatID:       req.ID,
		MessageID:    messageID,
		UserText:     userText,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	streamCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()
	// SSE Request construction
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	started := false
	startStream := func() error {
		if started {
			return nil
		}
		started = true
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		return sendEvent("ack", gin.H{
			"chat_id":    turn.Chat().ID,
			"message_id": turn.UserMessageID(),
			"title":      turn.Chat().Title,
		})
	}

	result, streamErr := h.orchestrator.Stream(streamCtx, turn, func(chunk string) error {
		if err := startStream(); err != nil {
			return err
		}
		return sendEvent("stream", gin.H{"content": chunk})
	})
	if result == nil {
		if !started {
			// nothing emitted yet, a plain status still works
			status, msg := statusForError(streamErr)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		_ = sendEvent("error", gin.H{"message": "stream interrupted"})
		return
	}
	if err := startStream(); err != nil {
		return
	}
	if streamErr != nil {
		// the response was truncated mid-stream; make that visible instead
		// of silently ending the stream
		_ = sendEvent("error", gin.H{"message": "stream interrupted", "persisted": result.Persisted})
		return
	}
	_ = sendEvent("done", gin.H{
		"chat_id":      result.Chat.ID,
		"user_message": result.UserMessage,
		"ai_message":   result.AssistantMessage,
		"persisted":    result.Persisted,
	})
}

func (h *Handler) chatMessages(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	chatID := c.Query("id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	chat, err := h.planner.GetChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if chat == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if chat.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	messages, err := h.planner.LoadMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if messages == nil {
		messages = make([]*models.ChatMessage, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"chat":     chat,
		"messages": messages,
	})
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
