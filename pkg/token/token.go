package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hertz-contrib/jwt"

	"GreenNest/config"
	"GreenNest/pkg/errors"
)

const (
	IdentityKey = "uid"

	typeAccess  = "access"
	typeRefresh = "refresh"
)

// middleware 与签发共用同一个实例
var sharedGenerator *jwt.HertzJWTMiddleware

// Pair 登录或刷新后下发的令牌
type Pair struct {
	AccessToken  string
	RefreshToken string
	RefreshID    string // refresh token 的 jti，Redis 中按它做单次使用校验
	ExpiresIn    int
	RefreshTTL   time.Duration
}

func Init() error {
	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       config.Cfg.ServiceName,
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     accessTTL(),
		MaxRefresh:  refreshTTL(),
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

func accessTTL() time.Duration {
	return time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute
}

func refreshTTL() time.Duration {
	return time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour
}

// GeneratePair 为账户 public id 签发 access/refresh 令牌
func GeneratePair(accountID string) (Pair, error) {
	if sharedGenerator == nil {
		return Pair{}, errors.ErrTokenGeneratorNotInitialized
	}

	now := time.Now()
	expiresAt := now.Add(accessTTL())

	access, err := sign(jwtv5.MapClaims{
		IdentityKey: accountID,
		"type":      typeAccess,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	jti := uuid.NewString()
	refresh, err := sign(jwtv5.MapClaims{
		IdentityKey: accountID,
		"type":      typeRefresh,
		"jti":       jti,
		"iat":       now.Unix(),
		"exp":       now.Add(refreshTTL()).Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresIn := int(time.Until(expiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshID:    jti,
		ExpiresIn:    expiresIn,
		RefreshTTL:   refreshTTL(),
	}, nil
}

func sign(claims jwtv5.MapClaims) (string, error) {
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(config.Cfg.JWTSecret))
}

// ValidateRefreshToken 校验 refresh token，返回账户 ID 与 jti
func ValidateRefreshToken(tokenString string) (accountID, jti string, err error) {
	parsed, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(t *jwtv5.Token) (interface{}, error) {
		if t.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, t.Header["alg"])
		}
		return []byte(config.Cfg.JWTSecret), nil
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return "", "", errors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", "", errors.ErrInvalidTokenClaims
	}

	if tokenType, _ := claims["type"].(string); tokenType != typeRefresh {
		return "", "", errors.ErrInvalidTokenType
	}

	accountID, ok = claims[IdentityKey].(string)
	if !ok || accountID == "" {
		return "", "", errors.ErrUserIDNotFound
	}

	jti, _ = claims["jti"].(string)
	return accountID, jti, nil
}
