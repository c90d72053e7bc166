package services

import (
	"context"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

var bookingNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2030, 1, 2, hour, minute, 0, 0, time.UTC)
}

type bookingFixture struct {
	db       *gorm.DB
	svc      *FacilityService
	events   *eventRecorder
	resident *models.Resident
	facility *models.Facility
}

func newBookingFixture(t *testing.T) *bookingFixture {
	db := testdb.New(t)
	hub, rec := newRecordedHub()
	notifications := NewNotificationService(db, nil, hub)
	svc := NewFacilityService(db, nil, hub, notifications).(*FacilityService)
	svc.Now = func() time.Time { return bookingNow }

	unit := seedUnit(t, db, "A-101", models.UnitStatusOccupied, 3500000)
	return &bookingFixture{
		db:       db,
		svc:      svc,
		events:   rec,
		resident: seedResident(t, db, "budi@example.com", models.ResidentStatusActive, &unit.ID),
		facility: seedFacility(t, db, nil),
	}
}

func (f *bookingFixture) request(start, end time.Time) BookingRequest {
	return BookingRequest{FacilityID: f.facility.ID, StartTime: start, EndTime: end, Attendees: 4, Purpose: "Team meeting"}
}

func TestCreateBookingConfirmedWithInvoice(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(9, 0), at(11, 0)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(booking.BookingNumber, "BK"))
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, 100000.0, booking.TotalFee)
	require.NotNil(t, booking.PaymentID)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, *booking.PaymentID).Error)
	assert.True(t, strings.HasPrefix(payment.InvoiceNumber, "INV"))
	assert.Equal(t, models.PaymentTypeFacility, payment.Type)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, 100000.0, payment.Amount)
	require.NotNil(t, payment.FacilityBookingID)
	assert.Equal(t, booking.ID, *payment.FacilityBookingID)
	require.NotNil(t, payment.UnitID)
	assert.Equal(t, *f.resident.UnitID, *payment.UnitID)

	var stored models.FacilityBooking
	require.NoError(t, f.db.First(&stored, booking.ID).Error)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, payment.ID, *stored.PaymentID)

	var notifications int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("user_id = ?", f.resident.UserID).Count(&notifications).Error)
	assert.Equal(t, int64(1), notifications)

	assert.Len(t, f.events.forTable("facility_bookings"), 1)
	assert.Len(t, f.events.forTable("payments"), 1)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{"end before start", f.request(at(11, 0), at(9, 0)), ErrBookingInvalidTime},
		{"zero length", f.request(at(9, 0), at(9, 0)), ErrBookingInvalidTime},
		{"spans two days", f.request(at(19, 0), at(19, 0).Add(6*time.Hour)), ErrBookingInvalidTime},
		{"in the past", f.request(bookingNow.Add(-2*time.Hour), bookingNow.Add(-time.Hour)), ErrBookingInvalidTime},
		{"before opening", f.request(at(7, 30), at(9, 0)), ErrBookingInvalidTime},
		{"after closing", f.request(at(19, 0), at(20, 30)), ErrBookingInvalidTime},
	}
	for _, c := range cases {
		_, err := f.svc.CreateBooking(ctx, f.resident.ID, c.req)
		assert.ErrorIs(t, err, c.want, c.name)
	}

	req := f.request(at(9, 0), at(10, 0))
	req.Attendees = 11
	_, err := f.svc.CreateBooking(ctx, f.resident.ID, req)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// 结束时间正好等于关闭时间是允许的
	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(19, 0), at(20, 0)))
	assert.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, 9999, f.request(at(9, 0), at(10, 0)))
	assert.ErrorIs(t, err, ErrResidentNotFound)

	pending := seedResident(t, f.db, "new@example.com", models.ResidentStatusPending, nil)
	_, err = f.svc.CreateBooking(ctx, pending.ID, f.request(at(9, 0), at(10, 0)))
	assert.ErrorIs(t, err, ErrResidentNotActive)

	closed := seedFacility(t, f.db, func(fc *models.Facility) { fc.Name = "Pool"; fc.Status = models.FacilityStatusMaintenance })
	req = f.request(at(9, 0), at(10, 0))
	req.FacilityID = closed.ID
	_, err = f.svc.CreateBooking(ctx, f.resident.ID, req)
	assert.ErrorIs(t, err, ErrFacilityUnavailable)
}

func TestBookingHoursIgnoreClientOffset(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	plusTen := time.FixedZone("UTC+10", 10*60*60)

	// 03:00Z 不在 08:00-20:00 (UTC) 内，换成 +10:00 表示的同一时刻结果相同
	early := f.request(at(3, 0), at(4, 0))
	_, errUTC := f.svc.CreateBooking(ctx, f.resident.ID, early)
	shifted := f.request(at(3, 0).In(plusTen), at(4, 0).In(plusTen))
	_, errShifted := f.svc.CreateBooking(ctx, f.resident.ID, shifted)
	assert.ErrorIs(t, errUTC, ErrBookingInvalidTime)
	assert.ErrorIs(t, errShifted, ErrBookingInvalidTime)

	// 物业在雅加达 (UTC+7)：02:00Z 即当地 09:00，无论客户端用哪个偏移都可以预约
	f.svc.Config = &config.Config{PropertyTimeZone: "Asia/Jakarta"}
	booking, err := f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(2, 0).In(plusTen), at(3, 0).In(plusTen)))
	require.NoError(t, err)
	assert.True(t, booking.StartTime.Equal(at(2, 0)))

	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(2, 30), at(3, 30)))
	assert.ErrorIs(t, err, ErrBookingConflict)

	// 当地 19:30-20:30 超出关闭时间
	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(12, 30), at(13, 30)))
	assert.ErrorIs(t, err, ErrBookingInvalidTime)

	// 按天查询使用物业时区的日期边界
	day := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.GetAvailability(ctx, f.facility.ID, day)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, booking.ID, slots[0].BookingID)

	bookings, total, err := f.svc.ListBookings(ctx, BookingFilter{Date: &day}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, bookings, 1)

	nextDay := day.AddDate(0, 0, 1)
	slots, err = f.svc.GetAvailability(ctx, f.facility.ID, nextDay)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(9, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(10, 0), at(12, 0)))
	assert.ErrorIs(t, err, ErrBookingConflict)
	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(8, 0), at(9, 30)))
	assert.ErrorIs(t, err, ErrBookingConflict)

	// 首尾相接不算冲突
	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(11, 0), at(12, 0)))
	assert.NoError(t, err)

	// 取消后的时段可以重新预约
	_, err = f.svc.CancelBooking(ctx, f.resident.ID, first.ID, "plans changed")
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(9, 0), at(11, 0)))
	assert.NoError(t, err)

	slots, err := f.svc.GetAvailability(ctx, f.facility.ID, at(0, 0))
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestBookingRequiringApprovalWithoutFee(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	hall := seedFacility(t, f.db, func(fc *models.Facility) {
		fc.Name = "Hall"
		fc.HourlyRate = 0
		fc.RequiresApproval = true
	})

	req := f.request(at(13, 0), at(15, 0))
	req.FacilityID = hall.ID
	booking, err := f.svc.CreateBooking(ctx, f.resident.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Zero(t, booking.TotalFee)
	assert.Nil(t, booking.PaymentID)

	var payments int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)

	confirmed, err := f.svc.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)

	_, err = f.svc.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusPending, "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	completed, err := f.svc.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, completed.Status)

	_, err = f.svc.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusCancelled, "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCancelBookingCancelsUnpaidInvoice(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	other := seedResident(t, f.db, "other@example.com", models.ResidentStatusActive, nil)

	booking, err := f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(9, 0), at(10, 0)))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, other.ID, booking.ID, "not mine")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	cancelled, err := f.svc.CancelBooking(ctx, f.resident.ID, booking.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancelReason)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, *booking.PaymentID).Error)
	assert.Equal(t, models.PaymentStatusCancelled, payment.Status)

	_, err = f.svc.CancelBooking(ctx, f.resident.ID, booking.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	events := f.events.forTable("facility_bookings")
	assert.Equal(t, realtime.EventUpdate, events[len(events)-1].Type)
}

func TestFacilityCRUD(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	bad := &models.Facility{Name: "Gym", OpenTime: "22:00", CloseTime: "06:00", Capacity: 5}
	assert.ErrorIs(t, f.svc.CreateFacility(ctx, bad), ErrInvalidArgument)

	gym := &models.Facility{Name: "Gym", OpenTime: "06:00", CloseTime: "22:00", Capacity: 5}
	require.NoError(t, f.svc.CreateFacility(ctx, gym))
	assert.Equal(t, models.FacilityStatusActive, gym.Status)

	_, err := f.svc.UpdateFacility(ctx, gym.ID, map[string]interface{}{"capacity": 0})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	updated, err := f.svc.UpdateFacility(ctx, gym.ID, map[string]interface{}{"status": models.FacilityStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.FacilityStatusInactive, updated.Status)

	active, err := f.svc.ListFacilities(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = f.svc.CreateBooking(ctx, f.resident.ID, f.request(at(9, 0), at(10, 0)))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteFacility(ctx, f.facility.ID), ErrBookingConflict)
	require.NoError(t, f.svc.DeleteFacility(ctx, gym.ID))
	_, err = f.svc.GetFacility(ctx, gym.ID)
	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestBookingFee(t *testing.T) {
	assert.Equal(t, 75000.0, BookingFee(50000, at(9, 0), at(10, 30)))
	assert.Equal(t, 0.0, BookingFee(0, at(9, 0), at(10, 0)))
	assert.Equal(t, 0.0, BookingFee(50000, at(10, 0), at(9, 0)))
	assert.Equal(t, 33333.33, BookingFee(100000, at(9, 0), at(9, 20)))
}
