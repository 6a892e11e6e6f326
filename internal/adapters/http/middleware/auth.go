package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/construction-api/internal/platform/config"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
)

// SubjectKey は認証済みトークンの sub を gin.Context に保存するキーです。
const SubjectKey = "auth_subject"

// Authenticator は HS256 で署名された Bearer トークンを検証します。
type Authenticator struct {
	secret []byte
	issuer string
	log    *logger.Logger
}

// NewAuthenticator は Authenticator を生成します。
func NewAuthenticator(cfg config.AuthConfig, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: strings.TrimSpace(cfg.Issuer),
		log:    log.With("component", "auth"),
	}
}

// RequireAuth は有効なトークンを持たないリクエストを 401 で打ち切ります。
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "Not authenticated")
			return
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			a.log.Debug("token rejected", "error", err, "path", c.Request.URL.Path)
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}

func (a *Authenticator) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	return claims, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail, "code": "unauthenticated"})
}
