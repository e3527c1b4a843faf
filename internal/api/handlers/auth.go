package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/playmatatu/arcade/internal/logger"
	"go.uber.org/zap"
)

const sessionIDKey = "session_id"

var errInvalidToken = errors.New("invalid token")

// IssueSessionToken signs a player session token for sessionID.
func IssueSessionToken(secret, sessionID string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	custom := jwt.MapClaims{sessionIDKey: sessionID, "exp": claims.ExpiresAt.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, custom)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// ParseSessionToken verifies an HS256 session token and returns its session
// ID.
func ParseSessionToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	sessionID, ok := claims[sessionIDKey].(string)
	if !ok || sessionID == "" {
		return "", errInvalidToken
	}
	return sessionID, nil
}

// CreateSession starts an anonymous aiming session and returns its token.
func CreateSession(cfg *config.Config) gin.HandlerFunc {
	ttl := time.Duration(cfg.SessionTimeoutMin) * time.Minute
	return func(c *gin.Context) {
		sessionID := uuid.NewString()
		signed, exp, err := IssueSessionToken(cfg.JWTSecret, sessionID, ttl)
		if err != nil {
			logger.Named("auth").Error("failed to issue session token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token":      signed,
			"session_id": sessionID,
			"expires_at": exp.UTC().Format(time.RFC3339),
		})
	}
}

// AuthMiddleware validates the bearer session token and sets session_id in
// the context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		sessionID, err := ParseSessionToken(cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}
