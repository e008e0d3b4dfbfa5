package util

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims 访问令牌载荷。签发由认证服务负责，这里只做校验
type Claims struct {
	LearnerID string `json:"learner_id"`
	jwt.RegisteredClaims
}

func GenerateJWT(learnerID, secret string, expiration time.Duration) (string, error) {
	claims := &Claims{
		LearnerID: learnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   learnerID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.LearnerID == "" {
		// 兼容只填了 sub 的令牌
		claims.LearnerID = claims.Subject
	}
	if claims.LearnerID == "" {
		return nil, ErrMissingLearner
	}
	return claims, nil
}

func GetClaimsFromContext(c *gin.Context) *Claims {
	v, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := v.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetLearnerID 当前请求的学习者 ID，未认证时返回空串
func GetLearnerID(c *gin.Context) string {
	if claims := GetClaimsFromContext(c); claims != nil {
		return claims.LearnerID
	}
	return ""
}
