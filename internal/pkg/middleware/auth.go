package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthConfig holds bearer token authentication settings. An empty
// SecretKey disables authentication entirely; Required escalates a
// missing or invalid token from anonymous access to a 401.
type AuthConfig struct {
	SecretKey       string
	TokenExpiration time.Duration
	Required        bool
}

// Claims carried by tabiji bearer tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates an optional Authorization: Bearer token. Valid tokens
// attach the user to the request context; anything else falls back to
// anonymous unless cfg.Required is set.
func Auth(cfg AuthConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SecretKey == "" {
			setAnonymous(c)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.Required {
				logger.Warn("Missing authorization header",
					zap.String("path", c.Request.URL.Path))
				abortUnauthorized(c, "authorization header required")
				return
			}
			setAnonymous(c)
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			if cfg.Required {
				abortUnauthorized(c, "invalid authorization header format")
				return
			}
			setAnonymous(c)
			c.Next()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SecretKey), nil
		})
		if err != nil || !token.Valid {
			if cfg.Required {
				logger.Warn("Invalid token",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
				abortUnauthorized(c, "invalid or expired token")
				return
			}
			logger.Debug("Invalid token, treating request as anonymous",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			setAnonymous(c)
			c.Next()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("authenticated", true)
		c.Next()
	}
}

// GenerateToken mints a signed bearer token for the given user. Used by
// operators to hand out API credentials when Required mode is on.
func GenerateToken(cfg AuthConfig, userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func setAnonymous(c *gin.Context) {
	c.Set("user_id", "anonymous")
	c.Set("authenticated", false)
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  "UNAUTHORIZED",
	})
}
