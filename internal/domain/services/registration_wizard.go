package services

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// RegistrationSteps 注册向导总步数
const RegistrationSteps = 4

const (
	minResidentAge = 17
	maxOccupants   = 10
	dateLayout     = "2006-01-02"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// formValidator 单字段校验，不依赖向导时钟
var formValidator = validator.New()

// RegistrationRequest 注册向导提交的全部字段，各步骤只校验各自的字段
type RegistrationRequest struct {
	// 第1步 账号
	Email           string `json:"email" validate:"required,email" example:"budi@example.com"`
	Password        string `json:"password" validate:"password" example:"secret123"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password" example:"secret123"`

	// 第2步 个人信息
	FullName    string `json:"full_name" validate:"trimmed_min=3" example:"Budi Santoso"`
	Phone       string `json:"phone" validate:"phone" example:"+6281234567890"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02,adult" example:"1995-04-12"`
	IDNumber    string `json:"id_number" validate:"notblank" example:"3171234567890001"`
	Occupation  string `json:"occupation" example:"Engineer"`

	// 第3步 入住信息
	PreferredUnitID       *uint  `json:"preferred_unit_id,omitempty" validate:"omitempty,min=1" example:"3"`
	MoveInDate            string `json:"move_in_date" validate:"required,datetime=2006-01-02,not_past" example:"2030-01-01"`
	Occupants             int    `json:"occupants" validate:"min=1,max=10" example:"2"`
	EmergencyContactName  string `json:"emergency_contact_name" validate:"notblank" example:"Siti"`
	EmergencyContactPhone string `json:"emergency_contact_phone" validate:"phone" example:"+6281298765432"`

	// 第4步 协议
	AcceptTerms   bool `json:"accept_terms" validate:"required" example:"true"`
	AcceptPrivacy bool `json:"accept_privacy" validate:"required" example:"true"`
}

// registrationStepFields 每一步校验的字段
var registrationStepFields = map[int][]string{
	1: {"Email", "Password", "ConfirmPassword"},
	2: {"FullName", "Phone", "DateOfBirth", "IDNumber"},
	3: {"PreferredUnitID", "MoveInDate", "Occupants", "EmergencyContactName", "EmergencyContactPhone"},
	4: {"AcceptTerms", "AcceptPrivacy"},
}

// registrationMessages 校验失败文案，先按 字段.规则 查找，再按字段查找
var registrationMessages = map[string]string{
	"email.required":          "邮箱不能为空",
	"email":                   "邮箱格式不正确",
	"password":                ErrWeakPassword.Error(),
	"confirm_password":        "两次输入的密码不一致",
	"full_name":               "姓名至少3个字符",
	"phone":                   "手机号格式不正确",
	"date_of_birth.required":  "出生日期不能为空",
	"date_of_birth.datetime":  "出生日期格式应为YYYY-MM-DD",
	"date_of_birth":           "年龄必须年满17岁",
	"id_number":               "证件号码不能为空",
	"preferred_unit_id":       "意向房源无效",
	"move_in_date.required":   "入住日期不能为空",
	"move_in_date.datetime":   "入住日期格式应为YYYY-MM-DD",
	"move_in_date":            "入住日期不能早于今天",
	"occupants":               "入住人数必须在1到10之间",
	"emergency_contact_name":  "紧急联系人不能为空",
	"emergency_contact_phone": "紧急联系人电话格式不正确",
	"accept_terms":            "必须同意服务条款",
	"accept_privacy":          "必须同意隐私政策",
}

// RegistrationWizard 四步注册表单校验，不保存中间状态
type RegistrationWizard struct {
	Now func() time.Time

	once     sync.Once
	validate *validator.Validate
}

// NewRegistrationWizard 创建注册向导
func NewRegistrationWizard() *RegistrationWizard {
	return &RegistrationWizard{Now: time.Now}
}

// ValidateStep 校验单个步骤，全部通过时返回 nil
func (w *RegistrationWizard) ValidateStep(step int, req RegistrationRequest) FieldErrors {
	fields, ok := registrationStepFields[step]
	if !ok {
		return FieldErrors{"step": "步骤必须在1到4之间"}
	}
	err := w.validator().StructPartial(req, fields...)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"step": err.Error()}
	}
	errs := FieldErrors{}
	for _, fe := range verrs {
		if _, exists := errs[fe.Field()]; exists {
			continue
		}
		errs[fe.Field()] = fieldMessage(fe)
	}
	return errs
}

// ValidateAll 依次校验第1到第4步，返回第一个失败的步骤
func (w *RegistrationWizard) ValidateAll(req RegistrationRequest) error {
	for step := 1; step <= RegistrationSteps; step++ {
		if errs := w.ValidateStep(step, req); errs != nil {
			return &StepError{Step: step, Fields: errs}
		}
	}
	return nil
}

func (w *RegistrationWizard) validator() *validator.Validate {
	w.once.Do(func() {
		v := validator.New()
		// 错误中的字段名使用 json 名称
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "password", func(fl validator.FieldLevel) bool {
			return ValidatePassword(fl.Field().String()) == nil
		})
		mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
			return validPhone(fl.Field().String())
		})
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "trimmed_min", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
		})
		mustRegister(v, "adult", func(fl validator.FieldLevel) bool {
			dob, err := time.Parse(dateLayout, fl.Field().String())
			return err == nil && ageOn(dob, w.now()) >= minResidentAge
		})
		mustRegister(v, "not_past", func(fl validator.FieldLevel) bool {
			day, err := time.Parse(dateLayout, fl.Field().String())
			return err == nil && !day.Before(truncateDay(w.now()))
		})
		w.validate = v
	})
	return w.validate
}

func (w *RegistrationWizard) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := registrationMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := registrationMessages[fe.Field()]; ok {
		return msg
	}
	return fe.Error()
}

// ValidatePassword 密码至少8位，且同时包含字母和数字
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

func validEmail(email string) bool {
	return formValidator.Var(email, "required,email") == nil
}

func validPhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	return phonePattern.MatchString(cleaned)
}

func ageOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
