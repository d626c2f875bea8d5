// Package auth JWT 签发与校验
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	beegocontext "github.com/beego/beego/v2/server/web/context"

	"casino-server/internal/config"
)

var (
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Claims 用户 Token 载荷
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken 签发用户访问 Token
func IssueToken(userID int64) (string, error) {
	cfg := config.GetCurrent()
	if cfg == nil || cfg.Auth.JWT.Secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	ttl := time.Duration(cfg.Auth.JWT.AccessTokenTTL) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Auth.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Auth.JWT.Secret))
}

// VerifyJWTToken 从请求头提取并校验 Token
func VerifyJWTToken(ctx *beegocontext.Context) (*Claims, error) {
	cfg := config.GetCurrent()
	if cfg == nil || cfg.Auth.JWT.Secret == "" {
		return nil, ErrInvalidToken
	}

	authHeader := strings.TrimSpace(ctx.Input.Header("Authorization"))
	if authHeader == "" {
		return nil, ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrInvalidTokenFormat
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(cfg.Auth.JWT.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
