package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"openhaus/internal/model"
)

// ==================== JWT config ====================

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:       "openhaus-secret-change-in-production",
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "openhaus",
	}
}

var jwtConfig = DefaultJWTConfig()

// SetJWTConfig installs the process-wide JWT config. Called once from
// main before the router is built.
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig = cfg
}

func GetJWTConfig() *JWTConfig {
	return jwtConfig
}

// ==================== Claims ====================

// UserClaims carries the authenticated identity. ActorID is non-zero
// only on impersonated tokens and names the admin actually driving the
// session; audit trails always prefer ActorID over UserID.
type UserClaims struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	ActorID int64  `json:"actor_id,omitempty"`
	jwt.RegisteredClaims
}

// Impersonated reports whether this token was minted through an
// impersonation session.
func (c *UserClaims) Impersonated() bool {
	return c.ActorID != 0 && c.ActorID != c.UserID
}

// ==================== Token generation ====================

func GenerateAccessToken(userID int64, email, role string) (string, error) {
	return signToken(userID, email, role, 0, "access", jwtConfig.AccessTokenTTL)
}

func GenerateRefreshToken(userID int64, email, role string) (string, error) {
	return signToken(userID, email, role, 0, "refresh", jwtConfig.RefreshTokenTTL)
}

func GenerateTokenPair(userID int64, email, role string) (accessToken, refreshToken string, err error) {
	accessToken, err = GenerateAccessToken(userID, email, role)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = GenerateRefreshToken(userID, email, role)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// GenerateImpersonatedToken mints an access token for the subject with
// the acting admin recorded in the claims. TTL is capped by the
// session's remaining life, never the regular access TTL.
func GenerateImpersonatedToken(subjectID int64, email, role string, actorID int64, ttl time.Duration) (string, error) {
	if ttl > jwtConfig.AccessTokenTTL {
		ttl = jwtConfig.AccessTokenTTL
	}
	return signToken(subjectID, email, role, actorID, "access", ttl)
}

func signToken(userID int64, email, role string, actorID int64, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID:  userID,
		Email:   email,
		Role:    role,
		ActorID: actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SecretKey))
}

// ==================== Token parsing ====================

func ParseToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== Gin middleware ====================

const (
	ContextKeyUserID  = "user_id"
	ContextKeyEmail   = "email"
	ContextKeyRole    = "role"
	ContextKeyActorID = "actor_id"
	ContextKeyClaims  = "claims"
)

// JWTAuth rejects requests without a valid Bearer access token.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "authorization must be Bearer {token}",
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "token invalid or expired",
			})
			c.Abort()
			return
		}

		if claims.Subject != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "wrong token type",
			})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeyRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "no role in context",
			})
			c.Abort()
			return
		}

		userRole := role.(string)
		for _, r := range roles {
			if userRole == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"code":    403,
			"message": "forbidden",
		})
		c.Abort()
	}
}

// RequireAdmin is shorthand for the admin surface.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}

// NoImpersonation blocks impersonated tokens from a route. Destructive
// admin routes use this so a stolen impersonation token can't escalate.
func NoImpersonation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := GetUserClaims(c); claims != nil && claims.Impersonated() {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "not available while impersonating",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present but never
// rejects. Public browse routes use this so view events can attribute
// a signed-in user.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil || claims.Subject != "access" {
			c.Next()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *UserClaims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyEmail, claims.Email)
	c.Set(ContextKeyRole, claims.Role)
	c.Set(ContextKeyActorID, claims.ActorID)
	c.Set(ContextKeyClaims, claims)
}

// ==================== Context helpers ====================

func GetUserID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeyUserID); exists {
		return id.(int64)
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextKeyEmail); exists {
		return email.(string)
	}
	return ""
}

func GetUserRole(c *gin.Context) string {
	if role, exists := c.Get(ContextKeyRole); exists {
		return role.(string)
	}
	return ""
}

// GetActorID returns who is really driving the request: the
// impersonating admin when set, otherwise the user themselves.
func GetActorID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeyActorID); exists {
		if actor := id.(int64); actor != 0 {
			return actor
		}
	}
	return GetUserID(c)
}

func GetUserClaims(c *gin.Context) *UserClaims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		return claims.(*UserClaims)
	}
	return nil
}
