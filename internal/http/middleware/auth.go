package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/http/response"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/ctxutil"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	middlewareLogger := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "missing_token", errors.New("token is missing"))
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err.Error())
			var ae *apierr.Error
			if errors.As(err, &ae) {
				response.RespondError(c, http.StatusUnauthorized, ae.Code, errors.New("token is invalid"))
				return
			}
			response.RespondError(c, http.StatusUnauthorized, "invalid_token", errors.New("token is invalid"))
			return
		}
		c.Request = c.Request.WithContext(ctx)
		if ctxutil.UserID(ctx) == "" {
			response.RespondError(c, http.StatusUnauthorized, "invalid_token", errors.New("token is invalid"))
			return
		}
		c.Next()
	}
}

// extractTokenFromAll prefers the ?token= query parameter, then the Bearer header.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
