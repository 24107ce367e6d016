package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// safe methods never mutate planner state and skip the CSRF check
var csrfSafeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// CSRFMiddleware guards cookie-authenticated mutations with a
// double-submit token. Callers presenting an explicit bearer header are
// exempt: that token never rides in a cookie, so a forged cross-site
// request cannot supply it.
func (s *Service) CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if csrfSafeMethods[c.Request.Method] {
			c.Next()
			return
		}
		if bearerToken(c.GetHeader(s.headerName)) != "" {
			c.Next()
			return
		}
		if err := s.verifyCSRF(c); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func (s *Service) verifyCSRF(c *gin.Context) error {
	headerValue := c.GetHeader(s.csrfHeaderName)
	cookieValue, err := c.Cookie(s.csrfCookieName)
	if err != nil || headerValue == "" || cookieValue == "" {
		return errors.New("csrf token required")
	}
	if subtle.ConstantTimeCompare([]byte(headerValue), []byte(cookieValue)) != 1 {
		return errors.New("invalid csrf token")
	}
	return nil
}

// bearerToken extracts the token from an Authorization header value,
// returning "" when the header does not carry a bearer scheme.
func bearerToken(header string) string {
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
