package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

func TestUnitCatalog(t *testing.T) {
	db := testdb.New(t)
	hub, rec := newRecordedHub()
	svc := NewUnitService(db, nil, nil, hub)
	ctx := context.Background()

	studio := &models.Unit{UnitNumber: "A-101", Name: "Cozy Studio", Type: "studio", Bedrooms: 0, MonthlyRent: 2500000}
	require.NoError(t, svc.CreateUnit(ctx, studio))
	assert.Equal(t, models.UnitStatusAvailable, studio.Status)

	family := &models.Unit{UnitNumber: "B-301", Name: "Family Suite", Type: "2br", Bedrooms: 2, MonthlyRent: 6000000, IsFeatured: true}
	require.NoError(t, svc.CreateUnit(ctx, family))

	assert.ErrorIs(t, svc.CreateUnit(ctx, &models.Unit{UnitNumber: "A-101", Name: "Dup"}), ErrUnitAlreadyExist)
	assert.ErrorIs(t, svc.CreateUnit(ctx, &models.Unit{UnitNumber: "C-1", Name: "Bad", Status: "demolished"}), ErrInvalidArgument)

	all, total, err := svc.ListUnits(ctx, UnitFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, family.ID, all[0].ID)

	two := 2
	maxPrice := 3000000.0
	found, total, err := svc.ListUnits(ctx, UnitFilter{Bedrooms: &two}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "B-301", found[0].UnitNumber)

	found, _, err = svc.ListUnits(ctx, UnitFilter{MaxPrice: &maxPrice, Search: "Cozy"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, studio.ID, found[0].ID)

	_, err = svc.UpdateUnit(ctx, studio.ID, map[string]interface{}{"unit_number": "B-301"})
	assert.ErrorIs(t, err, ErrUnitAlreadyExist)

	updated, err := svc.UpdateStatus(ctx, studio.ID, models.UnitStatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusMaintenance, updated.Status)
	_, err = svc.UpdateStatus(ctx, studio.ID, "gone")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.GetUnit(ctx, 999)
	assert.ErrorIs(t, err, ErrUnitNotFound)

	assert.Len(t, rec.forTable("units"), 3)
}

func TestUnitPhotosAndDelete(t *testing.T) {
	db := testdb.New(t)
	store := storage.NewMemoryStore("http://files.test")
	svc := NewUnitService(db, nil, store, nil)
	ctx := context.Background()

	unit := seedUnit(t, db, "A-101", models.UnitStatusAvailable, 2500000)
	first, err := svc.AddPhoto(ctx, unit.ID, pngUpload("living.png"), "Living room", false)
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)
	assert.True(t, strings.HasPrefix(first.ObjectKey, "units/"))

	second, err := svc.AddPhoto(ctx, unit.ID, pngUpload("bed.png"), "Bedroom", true)
	require.NoError(t, err)
	assert.True(t, second.IsPrimary)
	assert.Equal(t, 1, second.SortOrder)

	loaded, err := svc.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Photos, 2)
	assert.Equal(t, second.ID, loaded.Photos[0].ID)
	assert.False(t, loaded.Photos[1].IsPrimary)

	assert.ErrorIs(t, svc.DeletePhoto(ctx, unit.ID+1, first.ID), ErrPhotoNotFound)
	require.NoError(t, svc.DeletePhoto(ctx, unit.ID, first.ID))
	assert.False(t, store.Has(first.ObjectKey))

	resident := seedResident(t, db, "tenant@example.com", models.ResidentStatusActive, &unit.ID)
	assert.ErrorIs(t, svc.DeleteUnit(ctx, unit.ID), ErrUnitNotAvailable)

	require.NoError(t, db.Model(&models.Resident{}).Where("id = ?", resident.ID).Update("status", models.ResidentStatusMovedOut).Error)
	require.NoError(t, svc.DeleteUnit(ctx, unit.ID))
	assert.False(t, store.Has(second.ObjectKey))
	_, err = svc.GetUnit(ctx, unit.ID)
	assert.ErrorIs(t, err, ErrUnitNotFound)
}
