package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

const (
	tokenTypeSession = "session"
	tokenTypeReset   = "password_reset"
	resetTokenTTL    = time.Hour
)

// TokenIssuer 签发和校验 HS256 令牌
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 为用户签发会话令牌，每次登录的令牌都不同
func (t *TokenIssuer) Issue(uid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":  uuid.NewString(),
		"uid":  uid,
		"type": tokenTypeSession,
		"iat":  t.now().Unix(),
		"exp":  t.now().Add(t.ttl).Unix(),
	})
	return token.SignedString(t.secret)
}

// Parse 校验会话令牌，返回用户ID和过期时间
func (t *TokenIssuer) Parse(tokenString string) (string, time.Time, error) {
	claims, err := t.parse(tokenString, tokenTypeSession)
	if err != nil {
		return "", time.Time{}, err
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", time.Time{}, errors.New("无效的用户ID")
	}
	exp, _ := claims["exp"].(float64)
	return uid, time.Unix(int64(exp), 0), nil
}

// IssueReset 签发1小时有效的密码重置令牌
func (t *TokenIssuer) IssueReset(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"type":  tokenTypeReset,
		"exp":   t.now().Add(resetTokenTTL).Unix(),
	})
	return token.SignedString(t.secret)
}

// ParseReset 校验密码重置令牌，返回邮箱
func (t *TokenIssuer) ParseReset(tokenString string) (string, error) {
	claims, err := t.parse(tokenString, tokenTypeReset)
	if err != nil {
		return "", err
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.New("无效的令牌: 缺少邮箱信息")
	}
	return email, nil
}

func (t *TokenIssuer) parse(tokenString, wantType string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, errors.New("令牌为空")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的令牌")
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return nil, errors.New("无效的令牌类型")
	}
	return claims, nil
}
