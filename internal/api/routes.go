package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
	"github.com/6ogo/Brainy-sub002/internal/auth"
	"github.com/6ogo/Brainy-sub002/internal/websocket"
)

// InitRoutes initializes all API routes. conversations may be nil when
// persistence is not configured; the history endpoint then returns 503.
func InitRoutes(e *echo.Echo, hub *websocket.Hub, conversations repositories.ConversationRepository, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "brainy-voice",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/auth/token", func(c echo.Context) error {
		return issueToken(c, logger)
	})

	v1.GET("/conversations", func(c echo.Context) error {
		return listConversations(c, conversations, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

// issueToken exchanges a student identifier for a signed session token.
// Upstream identity verification happens before traffic reaches this
// service.
func issueToken(c echo.Context, logger *zap.Logger) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.StudentID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "student_id is required",
		})
	}

	token, err := auth.GenerateStudentToken(req.StudentID)
	if err != nil {
		logger.Error("Failed to generate student token",
			zap.String("student_id", req.StudentID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("Student token issued", zap.String("student_id", req.StudentID))

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.TokenTTL),
		StudentID: req.StudentID,
	})
}

// listConversations returns the authenticated student's past conversations
func listConversations(c echo.Context, conversations repositories.ConversationRepository, logger *zap.Logger) error {
	claims, errResp := authenticate(c)
	if errResp != nil {
		return c.JSON(http.StatusUnauthorized, errResp)
	}

	if conversations == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "persistence_disabled",
			Message: "Conversation history is not configured",
		})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a non-negative integer",
			})
		}
		limit = parsed
	}

	items, err := conversations.ListByStudent(c.Request().Context(), claims.StudentID, limit)
	if err != nil {
		logger.Error("Failed to list conversations",
			zap.String("student_id", claims.StudentID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load conversation history",
		})
	}

	return c.JSON(http.StatusOK, ConversationsResponse{Conversations: items})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	claims, errResp := authenticate(c)
	if errResp != nil {
		logger.Warn("WebSocket connection rejected", zap.String("reason", errResp.Error))
		return c.JSON(http.StatusUnauthorized, errResp)
	}

	if claims.Role != "student" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only student tokens are allowed for WebSocket connections",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("student_id", claims.StudentID))

	return websocket.HandleWebSocket(hub, c, claims.StudentID, logger)
}

// authenticate extracts and validates the JWT from the Authorization header
// or, for browser WebSocket clients that cannot set headers, the token query
// parameter.
func authenticate(c echo.Context) (*auth.StudentClaims, *ErrorResponse) {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		return nil, &ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		}
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, &ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		}
	}

	if claims.StudentID == "" {
		return nil, &ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Student ID not found in token",
		}
	}

	return claims, nil
}
