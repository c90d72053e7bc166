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

func pngUpload(name string) UploadFile {
	return UploadFile{Reader: strings.NewReader("png"), Size: 3, FileName: name, ContentType: "image/png"}
}

func TestGalleryPhotos(t *testing.T) {
	db := testdb.New(t)
	store := storage.NewMemoryStore("http://files.test")
	svc := NewGalleryService(db, store, nil)
	ctx := context.Background()

	lobby, err := svc.UploadPhoto(ctx, GalleryUpload{Title: " Lobby ", Category: "interior", SortOrder: 2}, pngUpload("lobby.png"))
	require.NoError(t, err)
	assert.Equal(t, "Lobby", lobby.Title)
	assert.True(t, strings.HasPrefix(lobby.ObjectKey, "gallery/"))
	assert.True(t, store.Has(lobby.ObjectKey))

	pool, err := svc.UploadPhoto(ctx, GalleryUpload{Title: "Pool", Category: "facility", SortOrder: 1}, pngUpload("pool.png"))
	require.NoError(t, err)

	_, err = svc.UploadPhoto(ctx, GalleryUpload{Title: "Brochure"}, UploadFile{Reader: strings.NewReader("%PDF"), Size: 4, FileName: "a.pdf", ContentType: "application/pdf"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	photos, err := svc.ListPhotos(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, pool.ID, photos[0].ID)

	_, err = svc.UpdatePhoto(ctx, pool.ID, map[string]interface{}{"is_published": false})
	require.NoError(t, err)
	photos, err = svc.ListPhotos(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, photos, 1)

	require.NoError(t, svc.DeletePhoto(ctx, lobby.ID))
	assert.False(t, store.Has(lobby.ObjectKey))
	assert.ErrorIs(t, svc.DeletePhoto(ctx, lobby.ID), ErrPhotoNotFound)
}

func TestGalleryWithoutStore(t *testing.T) {
	svc := NewGalleryService(testdb.New(t), nil, nil)
	_, err := svc.UploadPhoto(context.Background(), GalleryUpload{Title: "Lobby"}, pngUpload("lobby.png"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestSubmitInquiry(t *testing.T) {
	db := testdb.New(t)
	svc := NewGalleryService(db, nil, nil)
	ctx := context.Background()
	unit := seedUnit(t, db, "C-301", models.UnitStatusAvailable, 4200000)

	err := svc.SubmitInquiry(ctx, &models.Inquiry{Name: "A", Email: "not-an-email", Phone: "12"})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	missing := uint(999)
	assert.ErrorIs(t, svc.SubmitInquiry(ctx, &models.Inquiry{Name: "Andi", Email: "andi@example.com", UnitID: &missing}), ErrUnitNotFound)

	inquiry := &models.Inquiry{Name: "Andi", Email: "andi@example.com", Phone: "+62 812-3456-7890", UnitID: &unit.ID, Message: "Can I view it on Saturday?"}
	require.NoError(t, svc.SubmitInquiry(ctx, inquiry))
	assert.Equal(t, InquiryStatusNew, inquiry.Status)

	list, total, err := svc.ListInquiries(ctx, InquiryStatusNew, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, inquiry.ID, list[0].ID)

	updated, err := svc.UpdateInquiryStatus(ctx, inquiry.ID, InquiryStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, InquiryStatusContacted, updated.Status)

	_, err = svc.UpdateInquiryStatus(ctx, inquiry.ID, "spam")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.UpdateInquiryStatus(ctx, 999, InquiryStatusClosed)
	assert.ErrorIs(t, err, ErrInquiryNotFound)
}
