package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

type ticketFixture struct {
	db       *gorm.DB
	svc      InterfaceTicketService
	notes    InterfaceNotificationService
	store    *storage.MemoryStore
	resident *models.Resident
	owner    Actor
	admin    Actor
}

func newTicketFixture(t *testing.T) *ticketFixture {
	db := testdb.New(t)
	hub, _ := newRecordedHub()
	store := storage.NewMemoryStore("http://files.test")
	notes := NewNotificationService(db, nil, hub)
	unit := seedUnit(t, db, "B-201", models.UnitStatusOccupied, 3000000)
	resident := seedResident(t, db, "sari@example.com", models.ResidentStatusActive, &unit.ID)
	admin := seedUser(t, db, "admin@example.com", "admin12345", models.RoleAdmin, true)
	return &ticketFixture{
		db:       db,
		svc:      NewTicketService(db, nil, store, hub, notes),
		notes:    notes,
		store:    store,
		resident: resident,
		owner:    Actor{UserID: resident.UserID, Role: models.RoleResident},
		admin:    Actor{UserID: admin.ID, Role: models.RoleAdmin},
	}
}

func (f *ticketFixture) open(t *testing.T) *models.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), f.resident.ID, TicketRequest{
		Title:       "Kitchen leak",
		Description: "Water dripping under the sink",
		Category:    "plumbing",
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket := f.open(t)
	assert.True(t, strings.HasPrefix(ticket.TicketNumber, "TKT"))
	assert.Equal(t, "medium", ticket.Priority)
	assert.Equal(t, models.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.UnitID)
	assert.Equal(t, *f.resident.UnitID, *ticket.UnitID)

	_, err := f.svc.CreateTicket(ctx, f.resident.ID, TicketRequest{Title: "x", Description: "y", Category: "garden"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateTicket(ctx, f.resident.ID, TicketRequest{Title: "x", Description: "y", Category: "other", Priority: "asap"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateTicket(ctx, f.resident.ID, TicketRequest{Title: "  ", Description: "y", Category: "other"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateTicket(ctx, 999, TicketRequest{Title: "x", Description: "y", Category: "other"})
	assert.ErrorIs(t, err, ErrResidentNotFound)
}

func TestTicketInternalNotesHiddenFromResident(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t)

	_, err := f.svc.AddComment(ctx, ticket.ID, f.admin, "Check supplier stock first", true)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, ticket.ID, f.admin, "Technician arrives at 2pm", false)
	require.NoError(t, err)
	forced, err := f.svc.AddComment(ctx, ticket.ID, f.owner, "Thanks", true)
	require.NoError(t, err)
	assert.False(t, forced.IsInternal)

	seen, err := f.svc.GetResidentTicket(ctx, f.resident.ID, ticket.ID)
	require.NoError(t, err)
	require.Len(t, seen.Updates, 2)
	for _, u := range seen.Updates {
		assert.False(t, u.IsInternal)
	}

	full, err := f.svc.GetTicket(ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.Len(t, full.Updates, 3)

	unread, err := f.notes.UnreadCount(ctx, f.resident.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	_, err = f.svc.AddComment(ctx, ticket.ID, f.owner, "   ", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTicketLifecycle(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t)

	inProgress := models.TicketStatusInProgress
	assignee := "Pak Joko"
	updated, err := f.svc.UpdateTicket(ctx, ticket.ID, f.admin, TicketChange{Status: &inProgress, AssignedTo: &assignee, Message: "On the way"})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusInProgress, updated.Status)
	assert.Equal(t, "Pak Joko", updated.AssignedTo)
	require.Len(t, updated.Updates, 1)
	assert.Equal(t, models.TicketStatusOpen, updated.Updates[0].OldStatus)
	assert.Equal(t, models.TicketStatusInProgress, updated.Updates[0].NewStatus)

	_, err = f.svc.UpdateTicket(ctx, ticket.ID, f.admin, TicketChange{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad := "critical"
	_, err = f.svc.UpdateTicket(ctx, ticket.ID, f.admin, TicketChange{Priority: &bad})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	outsider := seedResident(t, f.db, "outsider@example.com", models.ResidentStatusActive, nil)
	_, err = f.svc.CloseTicket(ctx, outsider.ID, ticket.ID, Actor{UserID: outsider.UserID, Role: models.RoleResident})
	assert.ErrorIs(t, err, ErrTicketNotFound)

	closed, err := f.svc.CloseTicket(ctx, f.resident.ID, ticket.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusClosed, closed.Status)
	assert.NotNil(t, closed.ResolvedAt)

	_, err = f.svc.CloseTicket(ctx, f.resident.ID, ticket.ID, f.owner)
	assert.ErrorIs(t, err, ErrTicketClosed)
	_, err = f.svc.AddComment(ctx, ticket.ID, f.owner, "Still leaking", false)
	assert.ErrorIs(t, err, ErrTicketClosed)

	open := models.TicketStatusOpen
	_, err = f.svc.UpdateTicket(ctx, ticket.ID, f.owner, TicketChange{Status: &open})
	assert.ErrorIs(t, err, ErrForbidden)

	reopened, err := f.svc.UpdateTicket(ctx, ticket.ID, f.admin, TicketChange{Status: &open, Message: "Reopened after follow-up"})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestTicketAttachment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t)

	attachment, err := f.svc.AddAttachment(ctx, ticket.ID, f.owner, UploadFile{
		Reader:      strings.NewReader("jpeg-bytes"),
		Size:        10,
		FileName:    "leak.JPG",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(attachment.ObjectKey, "tickets/"))
	assert.True(t, strings.HasSuffix(attachment.ObjectKey, ".jpg"))
	assert.True(t, f.store.Has(attachment.ObjectKey))
	assert.Equal(t, "http://files.test/"+attachment.ObjectKey, attachment.URL)

	_, err = f.svc.AddAttachment(ctx, ticket.ID, f.owner, UploadFile{Reader: strings.NewReader(""), Size: MaxUploadSize + 1, FileName: "big.pdf"})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = f.svc.AddAttachment(ctx, 999, f.owner, UploadFile{Reader: strings.NewReader("x"), Size: 1, FileName: "a.txt"})
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
