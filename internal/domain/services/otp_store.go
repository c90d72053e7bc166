package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

const (
	otpCodeLength        = 6
	otpMaxVerifyAttempts = 5
	otpKeyPrefix         = "apartment:otp"
)

// OTPStore 验证码存储
type OTPStore interface {
	Create(ctx context.Context, email string, purpose models.OTPPurpose) (string, error)
	Verify(ctx context.Context, email string, purpose models.OTPPurpose, code string) error
}

// OTPOptions 验证码有效期和重发间隔
type OTPOptions struct {
	TTL         time.Duration
	ResendAfter time.Duration
}

func (o OTPOptions) normalized() OTPOptions {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Minute
	}
	if o.ResendAfter <= 0 {
		o.ResendAfter = time.Minute
	}
	return o
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newOTPCode() (string, string, error) {
	code, err := utils.RandomDigits(otpCodeLength)
	if err != nil {
		return "", "", fmt.Errorf("generate otp code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash otp code: %w", err)
	}
	return code, string(hash), nil
}

// RedisOTPStore 基于 Redis 的验证码存储（首选）
type RedisOTPStore struct {
	client  *redis.Client
	options OTPOptions
}

// NewRedisOTPStore 创建 Redis 验证码存储
func NewRedisOTPStore(client *redis.Client, options OTPOptions) *RedisOTPStore {
	return &RedisOTPStore{client: client, options: options.normalized()}
}

func (s *RedisOTPStore) codeKey(email string, purpose models.OTPPurpose) string {
	return fmt.Sprintf("%s:code:%s:%s", otpKeyPrefix, purpose, email)
}

func (s *RedisOTPStore) resendKey(email string, purpose models.OTPPurpose) string {
	return fmt.Sprintf("%s:resend:%s:%s", otpKeyPrefix, purpose, email)
}

// Create 生成新验证码，覆盖同一邮箱同一用途的旧验证码
func (s *RedisOTPStore) Create(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	email = normalizeEmail(email)
	resendKey := s.resendKey(email, purpose)
	allowed, err := s.client.SetNX(ctx, resendKey, "1", s.options.ResendAfter).Result()
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrOTPRateLimited
	}

	code, hash, err := newOTPCode()
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", err
	}

	key := s.codeKey(email, purpose)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, s.options.TTL)
		return nil
	})
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", err
	}
	return code, nil
}

// Verify 校验验证码，成功后验证码立即失效
func (s *RedisOTPStore) Verify(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrOTPInvalid
	}

	key := s.codeKey(email, purpose)

	// 先计数再比对，并发猜测也不会超过次数上限
	var attemptsCmd *redis.IntCmd
	var hashCmd *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		attemptsCmd = pipe.HIncrBy(ctx, key, "attempts", 1)
		hashCmd = pipe.HGet(ctx, key, "hash")
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	hash := hashCmd.Val()
	if hash == "" {
		// 验证码已过期，HIncrBy 新建的空键一并删除
		_ = s.client.Del(ctx, key).Err()
		return ErrOTPExpired
	}

	attempts := attemptsCmd.Val()
	if attempts > otpMaxVerifyAttempts {
		_ = s.client.Del(ctx, key).Err()
		return ErrOTPTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		if attempts >= otpMaxVerifyAttempts {
			_ = s.client.Del(ctx, key).Err()
			return ErrOTPTooManyAttempts
		}
		return ErrOTPInvalid
	}
	return s.client.Del(ctx, key).Err()
}

// DBOTPStore 基于 otp_codes 表的验证码存储，Redis 不可用时使用
type DBOTPStore struct {
	db      *gorm.DB
	options OTPOptions
	now     func() time.Time
}

// NewDBOTPStore 创建数据库验证码存储
func NewDBOTPStore(db *gorm.DB, options OTPOptions) *DBOTPStore {
	return &DBOTPStore{db: db, options: options.normalized(), now: time.Now}
}

// Create 生成新验证码，并使同一邮箱同一用途的旧验证码失效
func (s *DBOTPStore) Create(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	email = normalizeEmail(email)
	now := s.now()

	var latest models.OTPCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND purpose = ?", email, purpose).
		Order("created_at DESC").
		Take(&latest).Error
	if err == nil && now.Sub(latest.CreatedAt) < s.options.ResendAfter {
		return "", ErrOTPRateLimited
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	code, hash, err := newOTPCode()
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(&models.OTPCode{}).
		Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
		Update("consumed_at", now).Error; err != nil {
		return "", err
	}
	record := models.OTPCode{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		Email:     email,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.options.TTL),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}
	return code, nil
}

// Verify 校验验证码，成功后标记为已使用
func (s *DBOTPStore) Verify(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrOTPInvalid
	}

	var record models.OTPCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
		Order("created_at DESC").
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOTPExpired
	}
	if err != nil {
		return err
	}

	now := s.now()
	if now.After(record.ExpiresAt) {
		return ErrOTPExpired
	}
	if record.Attempts >= otpMaxVerifyAttempts {
		return ErrOTPTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		record.Attempts++
		if err := s.db.WithContext(ctx).Model(&record).Update("attempts", record.Attempts).Error; err != nil {
			return err
		}
		if record.Attempts >= otpMaxVerifyAttempts {
			return ErrOTPTooManyAttempts
		}
		return ErrOTPInvalid
	}
	return s.db.WithContext(ctx).Model(&record).Update("consumed_at", now).Error
}

// FallbackOTPStore Redis 出错时退回数据库存储
type FallbackOTPStore struct {
	Primary  OTPStore
	Fallback OTPStore
}

// Create 优先写入 Redis
func (s *FallbackOTPStore) Create(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	if s.Primary != nil {
		code, err := s.Primary.Create(ctx, email, purpose)
		if err == nil || isOTPError(err) {
			return code, err
		}
	}
	return s.Fallback.Create(ctx, email, purpose)
}

// Verify Redis 中找不到时再查数据库，兼容 Redis 故障期间签发的验证码
func (s *FallbackOTPStore) Verify(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	if s.Primary != nil {
		err := s.Primary.Verify(ctx, email, purpose, code)
		if err == nil || (isOTPError(err) && !errors.Is(err, ErrOTPExpired)) {
			return err
		}
	}
	return s.Fallback.Verify(ctx, email, purpose, code)
}

func isOTPError(err error) bool {
	return errors.Is(err, ErrOTPInvalid) || errors.Is(err, ErrOTPExpired) ||
		errors.Is(err, ErrOTPRateLimited) || errors.Is(err, ErrOTPTooManyAttempts)
}
