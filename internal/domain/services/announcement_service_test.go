package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

var announcementNow = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

func newAnnouncementService(t *testing.T) (*AnnouncementService, *eventRecorder) {
	db := testdb.New(t)
	hub, rec := newRecordedHub()
	svc := NewAnnouncementService(db, hub).(*AnnouncementService)
	svc.Now = func() time.Time { return announcementNow }
	return svc, rec
}

func TestAnnouncementPublishAndRead(t *testing.T) {
	svc, rec := newAnnouncementService(t)
	ctx := context.Background()

	draft := &models.Announcement{Title: "Water shutdown", Content: "Tower B, 10:00 to 12:00", Category: "maintenance"}
	require.NoError(t, svc.CreateAnnouncement(ctx, draft))
	assert.Equal(t, "normal", draft.Priority)
	assert.Nil(t, draft.PublishedAt)

	live := &models.Announcement{Title: "Pool party", Content: "Saturday evening", Category: "event", IsPublished: true}
	require.NoError(t, svc.CreateAnnouncement(ctx, live))
	require.NotNil(t, live.PublishedAt)

	visible, total, err := svc.ListPublished(ctx, "user-1", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.False(t, visible[0].IsRead)

	assert.ErrorIs(t, svc.MarkRead(ctx, "user-1", draft.ID), ErrAnnouncementNotFound)

	published, err := svc.SetPublished(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)
	assert.NotNil(t, published.PublishedAt)

	unread, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, svc.MarkRead(ctx, "user-1", live.ID))
	require.NoError(t, svc.MarkRead(ctx, "user-1", live.ID))

	unread, err = svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	visible, _, err = svc.ListPublished(ctx, "user-1", "event", 1, 10)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.True(t, visible[0].IsRead)

	assert.Len(t, rec.forTable("announcements"), 3)
}

func TestAnnouncementExpiryAndValidation(t *testing.T) {
	svc, _ := newAnnouncementService(t)
	ctx := context.Background()

	expired := announcementNow.Add(-time.Hour)
	old := &models.Announcement{Title: "Old news", Content: "Gone", IsPublished: true, ExpiresAt: &expired}
	require.NoError(t, svc.CreateAnnouncement(ctx, old))

	_, total, err := svc.ListPublished(ctx, "", "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.ErrorIs(t, svc.MarkRead(ctx, "user-1", old.ID), ErrAnnouncementNotFound)

	all, total, err := svc.ListAnnouncements(ctx, AnnouncementFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, old.ID, all[0].ID)

	assert.ErrorIs(t, svc.CreateAnnouncement(ctx, &models.Announcement{Title: "x", Content: "y", Category: "sports"}), ErrInvalidArgument)
	assert.ErrorIs(t, svc.CreateAnnouncement(ctx, &models.Announcement{Title: "", Content: "y"}), ErrInvalidArgument)

	_, err = svc.UpdateAnnouncement(ctx, old.ID, map[string]interface{}{"priority": "shouting"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	updated, err := svc.UpdateAnnouncement(ctx, old.ID, map[string]interface{}{"priority": "urgent"})
	require.NoError(t, err)
	assert.Equal(t, "urgent", updated.Priority)

	require.NoError(t, svc.DeleteAnnouncement(ctx, old.ID))
	_, err = svc.GetAnnouncement(ctx, old.ID)
	assert.ErrorIs(t, err, ErrAnnouncementNotFound)
}
