package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

// 展示给用户的认证错误文案
const (
	AuthMessageNetwork            = "网络连接失败，请检查网络后重试"
	AuthMessageInvalidCredentials = "邮箱或密码错误"
	AuthMessageEmailNotVerified   = "邮箱尚未验证，请先完成邮箱验证"
	AuthMessageDuplicate          = "该邮箱已被注册"
	AuthMessageDefault            = "操作失败，请稍后重试"
)

// SessionMeta 登录请求的客户端信息
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// LoginResult 表示登录结果
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// InterfaceAuthService 认证服务接口
type InterfaceAuthService interface {
	SignUp(ctx context.Context, req RegistrationRequest) (*models.User, error)
	SignIn(ctx context.Context, email, password string, meta SessionMeta) (*LoginResult, error)
	SignOut(ctx context.Context, userID, tokenID string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, userID, tokenID, oldPassword, newPassword string) error
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	SyncUser(ctx context.Context, user *models.User) error
	GetCurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// AuthService 账号注册、登录和密码找回
type AuthService struct {
	DB       *gorm.DB
	Config   *config.Config
	JWT      InterfaceJWTService
	OTP      OTPStore
	Notifier Notifier
	Wizard   *RegistrationWizard
}

// NewAuthService 创建认证服务
func NewAuthService(db *gorm.DB, cfg *config.Config, jwtService InterfaceJWTService, otp OTPStore, notifier Notifier) InterfaceAuthService {
	return &AuthService{
		DB:       db,
		Config:   cfg,
		JWT:      jwtService,
		OTP:      otp,
		Notifier: notifier,
		Wizard:   NewRegistrationWizard(),
	}
}

// 1 SignUp 校验完整注册表单后创建账号和居民档案，并发送邮箱验证码
func (s *AuthService) SignUp(ctx context.Context, req RegistrationRequest) (*models.User, error) {
	if err := s.Wizard.ValidateAll(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateRegistration
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:    email,
		Password: hashedPassword,
		Role:     models.RoleResident,
		Status:   models.UserStatusActive,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateRegistration
		}
		return nil, err
	}

	resident := &models.Resident{
		UserID:                user.ID,
		PreferredUnitID:       req.PreferredUnitID,
		FullName:              strings.TrimSpace(req.FullName),
		Phone:                 strings.TrimSpace(req.Phone),
		IDNumber:              strings.TrimSpace(req.IDNumber),
		Occupation:            strings.TrimSpace(req.Occupation),
		EmergencyContactName:  strings.TrimSpace(req.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(req.EmergencyContactPhone),
		Occupants:             req.Occupants,
		Status:                models.ResidentStatusPending,
	}
	if dob, err := time.Parse(dateLayout, req.DateOfBirth); err == nil {
		resident.DateOfBirth = &dob
	}
	if moveIn, err := time.Parse(dateLayout, req.MoveInDate); err == nil {
		resident.MoveInDate = &moveIn
	}
	// 账号与档案分两次写入，档案失败时保留账号并返回错误
	if err := s.DB.WithContext(ctx).Create(resident).Error; err != nil {
		logger.Error("创建居民档案失败 user=%s: %v", user.ID, err)
		return nil, err
	}
	user.Resident = resident

	s.sendOTP(ctx, email, models.OTPPurposeVerifyEmail)
	return user, nil
}

// 2 SignIn 邮箱密码登录，签发令牌并记录会话
func (s *AuthService) SignIn(ctx context.Context, email, password string, meta SessionMeta) (*LoginResult, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountDisabled
	}
	if user.Role == models.RoleResident && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	issued, err := s.JWT.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	session := models.UserSession{
		ID:        issued.TokenID,
		UserID:    user.ID,
		UserAgent: truncate(meta.UserAgent, 255),
		IPAddress: meta.IPAddress,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := s.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.Warning("更新最后登录时间失败 user=%s: %v", user.ID, err)
	}

	profile, err := s.GetCurrentUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: profile}, nil
}

// 3 SignOut 吊销当前会话
func (s *AuthService) SignOut(ctx context.Context, userID, tokenID string) error {
	var session models.UserSession
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", tokenID, userID).Take(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.revokeSessions(ctx, []models.UserSession{session})
}

// 4 RequestPasswordReset 申请重置密码，邮箱不存在时同样返回成功
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	var user models.User
	if err := s.DB.WithContext(ctx).Select("id").Where("email = ?", email).Take(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("查询用户失败: %v", err)
		}
		return nil
	}
	s.sendOTP(ctx, email, models.OTPPurposeResetPassword)
	return nil
}

// 5 ResetPassword 校验验证码后设置新密码，并吊销全部会话
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if err := s.OTP.Verify(ctx, email, models.OTPPurposeResetPassword, code); err != nil {
		return err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOTPInvalid
		}
		return err
	}
	if err := s.setPassword(ctx, &user, newPassword); err != nil {
		return err
	}
	return s.revokeAllSessions(ctx, user.ID, "")
}

// 6 ChangePassword 登录状态下修改密码，吊销除当前会话外的其他会话
func (s *AuthService) ChangePassword(ctx context.Context, userID, tokenID, oldPassword, newPassword string) error {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !utils.CheckPasswordHash(oldPassword, user.Password) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.setPassword(ctx, &user, newPassword); err != nil {
		return err
	}
	return s.revokeAllSessions(ctx, user.ID, tokenID)
}

// 7 VerifyEmail 校验邮箱验证码
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if err := s.OTP.Verify(ctx, email, models.OTPPurposeVerifyEmail, code); err != nil {
		return err
	}
	result := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Update("email_verified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// 8 ResendVerification 重新发送邮箱验证码
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	code, err := s.OTP.Create(ctx, email, models.OTPPurposeVerifyEmail)
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		return s.Notifier.SendOTP(ctx, email, models.OTPPurposeVerifyEmail, code)
	}
	return nil
}

// 9 SyncUser 账号不存在时补写 users 记录，并发插入导致的主键冲突直接忽略
func (s *AuthService) SyncUser(ctx context.Context, user *models.User) error {
	if user == nil || user.Email == "" {
		return ErrInvalidArgument
	}
	user.Email = normalizeEmail(user.Email)

	var count int64
	query := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email)
	if user.ID != "" {
		query = query.Or("id = ?", user.ID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if user.Password == "" {
		random := utils.RandomString(24)
		hashed, err := utils.HashPassword(random)
		if err != nil {
			return err
		}
		user.Password = hashed
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil && !isDuplicateKeyError(err) {
		return err
	}
	return nil
}

// 10 GetCurrentUser 获取用户及其居民/管理员档案
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Preload("Resident").
		Preload("Resident.Unit").
		Preload("Admin").
		Where("id = ?", userID).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(user).Update("password", hashed).Error
}

// revokeAllSessions 吊销用户的有效会话，keepTokenID 非空时保留该会话
func (s *AuthService) revokeAllSessions(ctx context.Context, userID, keepTokenID string) error {
	query := s.DB.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now())
	if keepTokenID != "" {
		query = query.Where("id <> ?", keepTokenID)
	}
	var sessions []models.UserSession
	if err := query.Find(&sessions).Error; err != nil {
		return err
	}
	return s.revokeSessions(ctx, sessions)
}

func (s *AuthService) revokeSessions(ctx context.Context, sessions []models.UserSession) error {
	now := time.Now()
	for _, session := range sessions {
		if session.RevokedAt != nil {
			continue
		}
		if err := s.DB.WithContext(ctx).Model(&models.UserSession{}).
			Where("id = ?", session.ID).
			Update("revoked_at", now).Error; err != nil {
			return err
		}
		if err := s.JWT.RevokeToken(ctx, session.ID, session.ExpiresAt); err != nil {
			logger.Warning("写入令牌黑名单失败 session=%s: %v", session.ID, err)
		}
	}
	return nil
}

// sendOTP 生成并投递验证码，失败只记录日志
func (s *AuthService) sendOTP(ctx context.Context, email string, purpose models.OTPPurpose) {
	code, err := s.OTP.Create(ctx, email, purpose)
	if err != nil {
		logger.Warning("生成验证码失败 purpose=%s: %v", purpose, err)
		return
	}
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendOTP(ctx, email, purpose, code); err != nil {
		logger.Warning("投递验证码失败 purpose=%s: %v", purpose, err)
	}
}

// MapAuthError 把认证错误转换为展示给用户的文案
func MapAuthError(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return AuthMessageInvalidCredentials
	case errors.Is(err, ErrEmailNotVerified):
		return AuthMessageEmailNotVerified
	case errors.Is(err, ErrDuplicateRegistration):
		return AuthMessageDuplicate
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return AuthMessageNetwork
	default:
		return AuthMessageDefault
	}
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// truncate 截断到不超过 n 字节，且不拆开多字节字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
