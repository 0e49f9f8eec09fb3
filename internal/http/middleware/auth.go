package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionClaim = "sid"

// SessionAuth issues and checks the bearer tokens that tie a client to the
// wizard session it created. An empty secret disables the check.
type SessionAuth struct {
	Secret []byte
	TTL    time.Duration
}

func (a SessionAuth) Enabled() bool {
	return len(a.Secret) > 0
}

// Issue signs a token for sessionID. It returns "" when auth is disabled.
func (a SessionAuth) Issue(sessionID string, now time.Time) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	ttl := a.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		sessionClaim: sessionID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	return token.SignedString(a.Secret)
}

// Parse validates raw and returns the session id it was issued for.
func (a SessionAuth) Parse(raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims")
	}
	sid, _ := claims[sessionClaim].(string)
	if sid == "" {
		return "", errors.New("token has no session")
	}
	return sid, nil
}

func bearer(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	// browsers cannot set headers on a websocket upgrade
	return strings.TrimSpace(c.Query("token"))
}

// RequireSession rejects requests whose token was not issued for the
// session in the :id path parameter.
func (a SessionAuth) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}
		raw := bearer(c)
		if raw == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing session token")
			return
		}
		sid, err := a.Parse(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid session token")
			return
		}
		if sid != c.Param("id") {
			abort(c, http.StatusForbidden, "forbidden", "token does not belong to this session")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"code":       code,
		"request_id": GetRequestID(c),
	})
}
