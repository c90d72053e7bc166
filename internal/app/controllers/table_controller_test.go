package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
)

func newTableTestController(rawQuery string) (*TableController, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/admin/tables/units?"+rawQuery, nil)
	return NewTableController(ctx, nil), w
}

func TestParseQuery(t *testing.T) {
	c, _ := newTableTestController("eq.status=available&eq.floor=3&select=id,%20unit_number,&order=created_at.desc&limit=20&offset=40")

	query, ok := c.parseQuery()
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"status": "available", "floor": "3"}, query.Filters)
	assert.Equal(t, []string{"id", "unit_number"}, query.Select)
	assert.Equal(t, "created_at", query.OrderBy)
	assert.False(t, query.Ascending)
	assert.Equal(t, 20, query.Limit)
	assert.Equal(t, 40, query.Offset)
}

func TestParseQueryDefaults(t *testing.T) {
	c, _ := newTableTestController("select=*&order=unit_number&limit=50000")

	query, ok := c.parseQuery()
	require.True(t, ok)
	assert.Empty(t, query.Filters)
	assert.Nil(t, query.Select)
	assert.Equal(t, "unit_number", query.OrderBy)
	assert.True(t, query.Ascending)
	assert.Equal(t, maxTableRows, query.Limit)
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"order=id.sideways", "limit=-1", "limit=ten", "offset=-5"} {
		c, w := newTableTestController(raw)
		_, ok := c.parseQuery()
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
}

func TestOwnRows(t *testing.T) {
	event := realtime.ChangeEvent{
		Table: "notifications",
		Type:  realtime.EventUpdate,
		New: []map[string]interface{}{
			{"id": 1, "user_id": "u-1"},
			{"id": 2, "user_id": "u-2"},
		},
		Old:     []map[string]interface{}{{"id": 2, "user_id": "u-2"}},
		Filters: map[string]interface{}{"is_read": false},
	}

	mine := ownRows(event, "u-1")
	require.Len(t, mine.New, 1)
	assert.Equal(t, 1, mine.New[0]["id"])
	assert.Empty(t, mine.Old)
	assert.Nil(t, mine.Filters)

	assert.Empty(t, ownRows(event, "u-3").New)
}

func TestPublicPathFor(t *testing.T) {
	assert.Equal(t, []string{publicUnitsPath}, publicPathFor("unit_photos"))
	assert.Equal(t, []string{publicAnnouncementsPath}, publicPathFor("announcements"))
	assert.Nil(t, publicPathFor("payments"))
}

func TestResidentViewHidesDraftAnnouncements(t *testing.T) {
	now := time.Date(2030, 1, 2, 12, 0, 0, 0, time.UTC)
	event := realtime.ChangeEvent{
		Table: "announcements",
		Type:  realtime.EventInsert,
		New: []map[string]interface{}{
			{"id": 1, "title": "草稿", "is_published": false},
			{"id": 2, "title": "已过期", "is_published": true, "expires_at": "2030-01-01T00:00:00Z"},
			{"id": 3, "title": "停水通知", "is_published": true},
			{"id": 4, "title": "长期有效", "is_published": int64(1), "expires_at": now.Add(time.Hour)},
		},
	}

	visible, ok := residentView(event, "u-1", now)
	require.True(t, ok)
	require.Len(t, visible.New, 2)
	assert.Equal(t, 3, visible.New[0]["id"])
	assert.Equal(t, 4, visible.New[1]["id"])

	drafts := realtime.ChangeEvent{
		Table: "announcements",
		Type:  realtime.EventDelete,
		Old:   []map[string]interface{}{{"id": 1, "is_published": false}},
	}
	_, ok = residentView(drafts, "u-1", now)
	assert.False(t, ok)

	_, ok = residentView(realtime.ChangeEvent{Table: "payments", New: []map[string]interface{}{{"id": 1}}}, "u-1", now)
	assert.False(t, ok)
}
