package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

// eventRecorder 记录 Hub 上发布的全部事件
type eventRecorder struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func newRecordedHub() (*realtime.Hub, *eventRecorder) {
	hub := realtime.NewHub()
	rec := &eventRecorder{}
	hub.Subscribe(realtime.AllTables, func(e realtime.ChangeEvent) {
		rec.mu.Lock()
		rec.events = append(rec.events, e)
		rec.mu.Unlock()
	})
	return hub, rec
}

func (r *eventRecorder) forTable(table string) []realtime.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.ChangeEvent
	for _, e := range r.events {
		if e.Table == table {
			out = append(out, e)
		}
	}
	return out
}

func seedUnit(t *testing.T, db *gorm.DB, number string, status models.UnitStatus, rent float64) *models.Unit {
	t.Helper()
	unit := &models.Unit{UnitNumber: number, Name: "Unit " + number, Type: "studio", Status: status, MonthlyRent: rent}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole, verified bool) *models.User {
	t.Helper()
	hashed, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, Password: hashed, Role: role, Status: models.UserStatusActive, EmailVerified: verified}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedResident(t *testing.T, db *gorm.DB, email string, status models.ResidentStatus, unitID *uint) *models.Resident {
	t.Helper()
	user := seedUser(t, db, email, "secret123", models.RoleResident, true)
	resident := &models.Resident{UserID: user.ID, FullName: "Resident " + email, Phone: "+628123456789", Status: status, UnitID: unitID, Occupants: 1}
	require.NoError(t, db.Create(resident).Error)
	return resident
}

func seedFacility(t *testing.T, db *gorm.DB, mutate func(*models.Facility)) *models.Facility {
	t.Helper()
	facility := &models.Facility{
		Name:       "Meeting Room",
		Capacity:   10,
		OpenTime:   "08:00",
		CloseTime:  "20:00",
		HourlyRate: 50000,
		Status:     models.FacilityStatusActive,
	}
	if mutate != nil {
		mutate(facility)
	}
	require.NoError(t, db.Create(facility).Error)
	return facility
}
