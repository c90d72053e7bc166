package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceAuthController 定义认证控制器接口
type InterfaceAuthController interface {
	ValidateStep()
	Register()
	Login()
	Logout()
	VerifyEmail()
	ResendVerification()
	ForgotPassword()
	ResetPassword()
	ChangePassword()
	GetCurrentUser()
}

// AuthController 处理注册、登录和密码相关请求
type AuthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAuthController 创建一个新的认证控制器
func NewAuthController(ctx *gin.Context, container *container.ServiceContainer) *AuthController {
	return &AuthController{
		Ctx:       ctx,
		Container: container,
	}
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"budi@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// EmailRequest 只包含邮箱的请求
type EmailRequest struct {
	Email string `json:"email" binding:"required" example:"budi@example.com"`
}

// VerifyEmailRequest 邮箱验证请求
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required" example:"budi@example.com"`
	Code  string `json:"code" binding:"required" example:"123456"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required" example:"budi@example.com"`
	Code        string `json:"code" binding:"required" example:"123456"`
	NewPassword string `json:"new_password" binding:"required" example:"newsecret123"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required" example:"secret123"`
	NewPassword string `json:"new_password" binding:"required" example:"newsecret123"`
}

func (c *AuthController) authService() services.InterfaceAuthService {
	return c.Container.GetService("auth").(services.InterfaceAuthService)
}

// fail 认证相关错误优先使用面向用户的提示文案
func (c *AuthController) fail(err error, fallback string) {
	if msg := services.MapAuthError(err); msg != services.AuthMessageDefault {
		errCode, ok := lookupErrorCode(err)
		if !ok {
			errCode = code.ErrNetwork
		}
		response.FailWithMessage(c.Ctx, errCode, msg, nil)
		return
	}
	handleServiceError(c.Ctx, err, fallback)
}

// ValidateStep 校验注册向导的单个步骤
// @Summary      校验注册步骤
// @Description  校验注册向导第1到第4步的字段，返回字段级错误
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        step path int true "步骤(1-4)"
// @Param        request body services.RegistrationRequest true "注册表单"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/register/validate/{step} [post]
func (c *AuthController) ValidateStep() {
	step, err := strconv.Atoi(c.Ctx.Param("step"))
	if err != nil {
		response.ParamError(c.Ctx, "无效的步骤")
		return
	}

	var req services.RegistrationRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	wizard := c.Container.GetService("wizard").(*services.RegistrationWizard)
	if errs := wizard.ValidateStep(step, req); errs != nil {
		handleServiceError(c.Ctx, &services.StepError{Step: step, Fields: errs}, "校验注册信息失败")
		return
	}

	response.Success(c.Ctx, gin.H{
		"step":        step,
		"valid":       true,
		"total_steps": services.RegistrationSteps,
	})
}

// Register 居民注册
// @Summary      居民注册
// @Description  提交完整的注册表单，创建账号和居民档案并发送邮箱验证码
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body services.RegistrationRequest true "注册表单"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /auth/register [post]
func (c *AuthController) Register() {
	var req services.RegistrationRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	user, err := c.authService().SignUp(c.Ctx.Request.Context(), req)
	if err != nil {
		c.fail(err, "注册失败")
		return
	}

	response.Created(c.Ctx, gin.H{
		"user":    user,
		"message": "注册成功，请查收邮箱验证码完成验证",
	})
}

// Login 登录
// @Summary      用户登录
// @Description  使用邮箱和密码登录，返回访问令牌
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "登录凭证"
// @Success      200  {object}  services.LoginResult
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Email not verified"
// @Router       /auth/login [post]
func (c *AuthController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	result, err := c.authService().SignIn(c.Ctx.Request.Context(), req.Email, req.Password, services.SessionMeta{
		UserAgent: c.Ctx.Request.UserAgent(),
		IPAddress: c.Ctx.ClientIP(),
	})
	if err != nil {
		c.fail(err, "登录失败")
		return
	}

	response.Success(c.Ctx, result)
}

// Logout 注销当前会话
// @Summary      注销
// @Description  吊销当前访问令牌
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout [post]
func (c *AuthController) Logout() {
	err := c.authService().SignOut(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), c.Ctx.GetString(middleware.ContextTokenID))
	if err != nil {
		c.fail(err, "注销失败")
		return
	}
	response.Success(c.Ctx, gin.H{"message": "已退出登录"})
}

// VerifyEmail 验证邮箱
// @Summary      验证邮箱
// @Description  使用邮件中的验证码完成邮箱验证
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyEmailRequest true "验证码"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/verify-email [post]
func (c *AuthController) VerifyEmail() {
	var req VerifyEmailRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	if err := c.authService().VerifyEmail(c.Ctx.Request.Context(), req.Email, req.Code); err != nil {
		c.fail(err, "邮箱验证失败")
		return
	}
	response.Success(c.Ctx, gin.H{"message": "邮箱验证成功"})
}

// ResendVerification 重新发送邮箱验证码
// @Summary      重发验证码
// @Description  重新发送邮箱验证码，受重发间隔限制
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "邮箱"
// @Success      200  {object}  map[string]interface{}
// @Failure      429  {object}  ErrorResponse
// @Router       /auth/resend-verification [post]
func (c *AuthController) ResendVerification() {
	var req EmailRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	if err := c.authService().ResendVerification(c.Ctx.Request.Context(), req.Email); err != nil {
		c.fail(err, "发送验证码失败")
		return
	}
	response.Success(c.Ctx, gin.H{"message": "验证码已发送"})
}

// ForgotPassword 申请重置密码
// @Summary      忘记密码
// @Description  向邮箱发送重置密码验证码，邮箱不存在时同样返回成功
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "邮箱"
// @Success      200  {object}  map[string]interface{}
// @Router       /auth/forgot-password [post]
func (c *AuthController) ForgotPassword() {
	var req EmailRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	if err := c.authService().RequestPasswordReset(c.Ctx.Request.Context(), req.Email); err != nil {
		c.fail(err, "申请重置密码失败")
		return
	}
	response.Success(c.Ctx, gin.H{"message": "如果该邮箱已注册，您将收到重置密码验证码"})
}

// ResetPassword 重置密码
// @Summary      重置密码
// @Description  使用验证码设置新密码，成功后吊销该账号全部会话
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "重置信息"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/reset-password [post]
func (c *AuthController) ResetPassword() {
	var req ResetPasswordRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	if err := c.authService().ResetPassword(c.Ctx.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		c.fail(err, "重置密码失败")
		return
	}
	response.Success(c.Ctx, gin.H{"message": "密码已重置，请重新登录"})
}

// ChangePassword 修改密码
// @Summary      修改密码
// @Description  已登录用户修改密码
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "新旧密码"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/password [put]
func (c *AuthController) ChangePassword() {
	var req ChangePasswordRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	err := c.authService().ChangePassword(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), c.Ctx.GetString(middleware.ContextTokenID), req.OldPassword, req.NewPassword)
	if err != nil {
		c.fail(err, "修改密码失败")
		return
	}
	response.Success(c.Ctx, gin.H{"message": "密码修改成功"})
}

// GetCurrentUser 获取当前登录用户
// @Summary      当前用户
// @Description  返回当前登录用户及其居民或管理员档案
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/me [get]
func (c *AuthController) GetCurrentUser() {
	user, err := c.authService().GetCurrentUser(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx))
	if err != nil {
		c.fail(err, "获取用户信息失败")
		return
	}
	response.Success(c.Ctx, user)
}

// HandleAuthFunc 返回一个处理认证请求的Gin处理函数
func HandleAuthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAuthController(ctx, container)

		switch method {
		case "validateStep":
			controller.ValidateStep()
		case "register":
			controller.Register()
		case "login":
			controller.Login()
		case "logout":
			controller.Logout()
		case "verifyEmail":
			controller.VerifyEmail()
		case "resendVerification":
			controller.ResendVerification()
		case "forgotPassword":
			controller.ForgotPassword()
		case "resetPassword":
			controller.ResetPassword()
		case "changePassword":
			controller.ChangePassword()
		case "me":
			controller.GetCurrentUser()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
