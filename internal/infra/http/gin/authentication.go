package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/services/auth"
	domainuser "padicrib/internal/domain/user"
)

// SessionCookie carries the token for browser clients that do not send a bearer header.
const SessionCookie = "padicrib_token"

type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

// Handle resolves the caller and attaches the principal to the request
// context. Anonymous requests pass through; suspended accounts are stopped
// here except for logout.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := requestToken(c)
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	user, err := m.Service.ResolveToken(c.Request.Context(), token)
	switch {
	case errors.Is(err, domainuser.ErrSuspended):
		if strings.HasSuffix(c.Request.URL.Path, "/auth/logout") {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		return
	case err != nil:
		if !errors.Is(err, auth.ErrInvalidToken) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	ctx := auth.ContextWithPrincipal(c.Request.Context(), auth.PrincipalFor(user))
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	return auth.PrincipalFromContext(c.Request.Context())
}

// requireRole writes 401/403 itself; an empty role list only requires a login.
func requireRole(c *gin.Context, roles ...domainuser.Role) (auth.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return auth.Principal{}, false
	}
	if len(roles) > 0 && !p.HasRole(roles...) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return auth.Principal{}, false
	}
	return p, true
}

func requestToken(c *gin.Context) string {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// paramID reads a positive integer path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
