package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedWizard() *RegistrationWizard {
	return &RegistrationWizard{Now: func() time.Time { return time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC) }}
}

func validRegistration() RegistrationRequest {
	unitID := uint(3)
	return RegistrationRequest{
		Email:                 "budi@example.com",
		Password:              "secret123",
		ConfirmPassword:       "secret123",
		FullName:              "Budi Santoso",
		Phone:                 "+62 812-3456-7890",
		DateOfBirth:           "1995-04-12",
		IDNumber:              "3171234567890001",
		PreferredUnitID:       &unitID,
		MoveInDate:            "2030-02-01",
		Occupants:             2,
		EmergencyContactName:  "Siti",
		EmergencyContactPhone: "081298765432",
		AcceptTerms:           true,
		AcceptPrivacy:         true,
	}
}

func TestWizardAcceptsValidRequest(t *testing.T) {
	w := fixedWizard()
	req := validRegistration()
	for step := 1; step <= RegistrationSteps; step++ {
		assert.Nil(t, w.ValidateStep(step, req), "step %d", step)
	}
	assert.NoError(t, w.ValidateAll(req))
}

func TestWizardAccountStep(t *testing.T) {
	w := fixedWizard()
	req := validRegistration()
	req.Email = "not-an-email"
	req.Password = "short1"
	req.ConfirmPassword = "different"

	errs := w.ValidateStep(1, req)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "confirm_password")

	req = validRegistration()
	req.Password, req.ConfirmPassword = "lettersonly", "lettersonly"
	assert.Contains(t, w.ValidateStep(1, req), "password")
}

func TestWizardMessagesUseJSONNames(t *testing.T) {
	w := fixedWizard()
	req := validRegistration()
	req.Email = ""
	req.ConfirmPassword = "secret124"
	req.DateOfBirth = "1995/04/12"
	req.MoveInDate = ""

	assert.Equal(t, FieldErrors{
		"email":            "邮箱不能为空",
		"confirm_password": "两次输入的密码不一致",
	}, w.ValidateStep(1, req))
	assert.Equal(t, FieldErrors{"date_of_birth": "出生日期格式应为YYYY-MM-DD"}, w.ValidateStep(2, req))
	assert.Equal(t, FieldErrors{"move_in_date": "入住日期不能为空"}, w.ValidateStep(3, req))

	req = validRegistration()
	req.FullName = "  李明  "
	req.Occupation = ""
	assert.Equal(t, FieldErrors{"full_name": "姓名至少3个字符"}, w.ValidateStep(2, req))
	req.FullName = "欧阳明"
	assert.Nil(t, w.ValidateStep(2, req))
}

func TestWizardPersonalStep(t *testing.T) {
	w := fixedWizard()

	req := validRegistration()
	req.DateOfBirth = "2013-01-16" // 差一天满17岁
	assert.Contains(t, w.ValidateStep(2, req), "date_of_birth")

	req.DateOfBirth = "2013-01-15"
	assert.Nil(t, w.ValidateStep(2, req))

	req.DateOfBirth = "15/01/1990"
	req.Phone = "12ab"
	req.FullName = "Bo"
	req.IDNumber = " "
	errs := w.ValidateStep(2, req)
	assert.Len(t, errs, 4)
}

func TestWizardResidenceStep(t *testing.T) {
	w := fixedWizard()

	req := validRegistration()
	req.MoveInDate = "2030-01-14"
	assert.Contains(t, w.ValidateStep(3, req), "move_in_date")

	req.MoveInDate = "2030-01-15"
	assert.Nil(t, w.ValidateStep(3, req))

	zero := uint(0)
	req.PreferredUnitID = &zero
	req.Occupants = 11
	req.EmergencyContactName = ""
	errs := w.ValidateStep(3, req)
	assert.Contains(t, errs, "preferred_unit_id")
	assert.Contains(t, errs, "occupants")
	assert.Contains(t, errs, "emergency_contact_name")

	req = validRegistration()
	req.PreferredUnitID = nil
	assert.Nil(t, w.ValidateStep(3, req))
}

func TestWizardAgreementAndUnknownStep(t *testing.T) {
	w := fixedWizard()
	req := validRegistration()
	req.AcceptPrivacy = false
	assert.Contains(t, w.ValidateStep(4, req), "accept_privacy")
	assert.Contains(t, w.ValidateStep(5, req), "step")
	assert.Contains(t, w.ValidateStep(0, req), "step")
}

func TestWizardValidateAllStopsAtFirstFailingStep(t *testing.T) {
	w := fixedWizard()
	req := validRegistration()
	req.Occupants = 0
	req.AcceptTerms = false

	err := w.ValidateAll(req)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 3, stepErr.Step)
	assert.Contains(t, stepErr.Fields, "occupants")
	assert.NotContains(t, stepErr.Fields, "accept_terms")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
