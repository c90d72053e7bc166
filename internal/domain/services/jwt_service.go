package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

const revokedTokenKeyPrefix = "revoked_token:"

// InterfaceJWTService 定义JWT服务接口
type InterfaceJWTService interface {
	GenerateToken(userID string, role models.UserRole) (*IssuedToken, error)
	ValidateToken(tokenString string) (*jwt.Token, error)
	ExtractClaims(tokenString string) (*JWTClaims, error)
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) bool
}

// IssuedToken 新签发的令牌
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTService 提供JWT相关服务
type JWTService struct {
	secretKey  string
	issuer     string
	expiration time.Duration
	DB         *gorm.DB
	Redis      InterfaceRedisService
}

// JWTClaims 定义JWT令牌的声明结构，jti 对应 user_sessions 主键
type JWTClaims struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTService 创建一个新的JWT服务，redis 为空时吊销状态只记录在数据库
func NewJWTService(cfg *config.Config, db *gorm.DB, redis InterfaceRedisService) InterfaceJWTService {
	return &JWTService{
		secretKey:  cfg.JWTSecretKey,
		issuer:     "apartment-service",
		expiration: cfg.JWTExpiration(),
		DB:         db,
		Redis:      redis,
	}
}

// 1 GenerateToken 生成JWT令牌
func (s *JWTService) GenerateToken(userID string, role models.UserRole) (*IssuedToken, error) {
	now := time.Now()
	expirationTime := now.Add(s.expiration)
	tokenID := uuid.NewString()

	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: signed, TokenID: tokenID, ExpiresAt: expirationTime}, nil
}

// 2 ValidateToken 验证JWT令牌
func (s *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
}

// 3 ExtractClaims 从令牌中提取声明
func (s *JWTService) ExtractClaims(tokenString string) (*JWTClaims, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// 4 RevokeToken 吊销令牌：Redis 黑名单保留到令牌过期
func (s *JWTService) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.Redis == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.Redis.Set(ctx, revokedTokenKeyPrefix+tokenID, true, ttl)
}

// 5 IsRevoked 判断令牌是否已吊销，Redis 不可用时查询 user_sessions
func (s *JWTService) IsRevoked(ctx context.Context, tokenID string) bool {
	if s.Redis != nil {
		revoked, err := s.Redis.Exists(ctx, revokedTokenKeyPrefix+tokenID)
		if err == nil {
			return revoked
		}
		logger.Warning("查询令牌黑名单失败，改为查询数据库: %v", err)
	}
	if s.DB == nil {
		return false
	}

	var session models.UserSession
	if err := s.DB.WithContext(ctx).Select("revoked_at").Where("id = ?", tokenID).Take(&session).Error; err != nil {
		return false
	}
	return session.RevokedAt != nil
}
