package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

func unitStatus(t *testing.T, svc *ResidentService, id uint) models.UnitStatus {
	t.Helper()
	var unit models.Unit
	require.NoError(t, svc.DB.First(&unit, id).Error)
	return unit.Status
}

func TestAssignUnitMovesResident(t *testing.T) {
	db := testdb.New(t)
	svc := NewResidentService(db, nil, nil).(*ResidentService)
	ctx := context.Background()

	old := seedUnit(t, db, "A-101", models.UnitStatusOccupied, 1000)
	next := seedUnit(t, db, "A-102", models.UnitStatusAvailable, 1200)
	busy := seedUnit(t, db, "A-103", models.UnitStatusOccupied, 1200)
	resident := seedResident(t, db, "budi@example.com", models.ResidentStatusActive, &old.ID)

	_, err := svc.AssignUnit(ctx, resident.ID, busy.ID)
	assert.ErrorIs(t, err, ErrUnitNotAvailable)
	_, err = svc.AssignUnit(ctx, resident.ID, 999)
	assert.ErrorIs(t, err, ErrUnitNotFound)

	moved, err := svc.AssignUnit(ctx, resident.ID, next.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.UnitID)
	assert.Equal(t, next.ID, *moved.UnitID)
	assert.Equal(t, models.UnitStatusOccupied, unitStatus(t, svc, next.ID))
	assert.Equal(t, models.UnitStatusAvailable, unitStatus(t, svc, old.ID))

	same, err := svc.AssignUnit(ctx, resident.ID, next.ID)
	require.NoError(t, err)
	assert.Equal(t, next.ID, *same.UnitID)

	out, err := svc.UpdateStatus(ctx, resident.ID, models.ResidentStatusMovedOut)
	require.NoError(t, err)
	assert.Nil(t, out.UnitID)
	assert.Equal(t, models.UnitStatusAvailable, unitStatus(t, svc, next.ID))

	_, err = svc.AssignUnit(ctx, resident.ID, old.ID)
	assert.ErrorIs(t, err, ErrResidentNotActive)
	_, err = svc.UpdateStatus(ctx, resident.ID, "banned")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateProfileRestrictsFields(t *testing.T) {
	db := testdb.New(t)
	svc := NewResidentService(db, nil, nil)
	ctx := context.Background()
	resident := seedResident(t, db, "budi@example.com", models.ResidentStatusActive, nil)

	_, err := svc.UpdateProfile(ctx, resident.UserID, map[string]interface{}{"status": "active"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateProfile(ctx, resident.UserID, map[string]interface{}{"occupants": 11})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.UpdateProfile(ctx, "missing-user", map[string]interface{}{"phone": "+628111"})
	assert.ErrorIs(t, err, ErrResidentNotFound)

	updated, err := svc.UpdateProfile(ctx, resident.UserID, map[string]interface{}{"occupation": "Engineer", "occupants": 3})
	require.NoError(t, err)
	assert.Equal(t, "Engineer", updated.Occupation)
	assert.Equal(t, 3, updated.Occupants)
}

func TestDeleteResidentRemovesAccount(t *testing.T) {
	db := testdb.New(t)
	svc := NewResidentService(db, nil, nil).(*ResidentService)
	ctx := context.Background()
	unit := seedUnit(t, db, "A-101", models.UnitStatusOccupied, 1000)
	resident := seedResident(t, db, "budi@example.com", models.ResidentStatusActive, &unit.ID)

	list, total, err := svc.GetAllResidents(ctx, ResidentFilter{Search: "budi"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.NotNil(t, list[0].User)

	require.NoError(t, svc.DeleteResident(ctx, resident.ID))
	assert.Equal(t, models.UnitStatusAvailable, unitStatus(t, svc, unit.ID))

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", resident.UserID).Count(&users).Error)
	assert.Zero(t, users)
	assert.ErrorIs(t, svc.DeleteResident(ctx, resident.ID), ErrResidentNotFound)
}
