package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	// 每个连接的待发送事件队列，满了直接丢弃
	wsSendBuffer = 64
)

// 居民可以订阅的表
var residentTables = map[string]bool{
	"announcements": true,
	"notifications": true,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由 CORS 配置和令牌校验控制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RealtimeController 通过 WebSocket 推送数据表变更
type RealtimeController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewRealtimeController 创建一个新的实时推送控制器
func NewRealtimeController(ctx *gin.Context, container *container.ServiceContainer) *RealtimeController {
	return &RealtimeController{
		Ctx:       ctx,
		Container: container,
	}
}

// Subscribe 订阅数据表变更
// @Summary      订阅数据表变更
// @Description  WebSocket 连接，令牌通过 ?token= 传递。居民只能订阅 announcements 和自己的 notifications，管理员可以订阅任意表或 *
// @Tags         Realtime
// @Param        table path string true "表名"
// @Param        token query string true "访问令牌"
// @Success      101
// @Failure      403  {object}  ErrorResponse
// @Router       /realtime/{table} [get]
func (c *RealtimeController) Subscribe() {
	table := c.Ctx.Param("table")
	role := middleware.CurrentRole(c.Ctx)
	userID := middleware.CurrentUserID(c.Ctx)

	if role != models.RoleAdmin && !residentTables[table] {
		response.FailWithMessage(c.Ctx, code.ErrForbidden, "无权订阅该数据表", nil)
		return
	}

	events := make(chan realtime.ChangeEvent, wsSendBuffer)
	handler := func(event realtime.ChangeEvent) {
		if role != models.RoleAdmin {
			var visible bool
			if event, visible = residentView(event, userID, time.Now()); !visible {
				return
			}
		}
		select {
		case events <- event:
		default:
			logger.Warning("[Realtime] 用户 %s 的推送队列已满，丢弃 %s 事件", userID, event.Table)
		}
	}

	tableService := c.Container.GetService("table").(services.InterfaceTableService)
	unsubscribe, err := tableService.SubscribeToTable(table, handler)
	if err != nil {
		handleServiceError(c.Ctx, err, "订阅失败")
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Ctx.Writer, c.Ctx.Request, nil)
	if err != nil {
		logger.Error("[Realtime] WebSocket升级失败: %v", err)
		return
	}
	defer conn.Close()
	logger.Info("[Realtime] 用户 %s 订阅 %s", userID, table)

	done := make(chan struct{})
	go c.readLoop(conn, done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Warning("[Realtime] 推送事件失败: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logger.Info("[Realtime] 用户 %s 取消订阅 %s", userID, table)
			return
		}
	}
}

// readLoop 只处理 pong 和关闭帧，客户端消息被忽略
func (c *RealtimeController) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// residentView 居民只能收到自己的通知和已发布且未过期的公告，过滤后没有剩余行时返回 false
func residentView(event realtime.ChangeEvent, userID string, now time.Time) (realtime.ChangeEvent, bool) {
	switch event.Table {
	case "notifications":
		event = ownRows(event, userID)
	case "announcements":
		event = visibleAnnouncements(event, now)
	default:
		return event, false
	}
	return event, len(event.New) > 0 || len(event.Old) > 0
}

// visibleAnnouncements 与公告列表相同的可见性：is_published 为真且 expires_at 为空或晚于 now
func visibleAnnouncements(event realtime.ChangeEvent, now time.Time) realtime.ChangeEvent {
	filter := func(rows []map[string]interface{}) []map[string]interface{} {
		var out []map[string]interface{}
		for _, row := range rows {
			if isTruthy(row["is_published"]) && !expiredAt(row["expires_at"], now) {
				out = append(out, row)
			}
		}
		return out
	}
	event.New = filter(event.New)
	event.Old = filter(event.Old)
	event.Filters = nil
	return event
}

// isTruthy 兼容 JSON 布尔值和数据库驱动返回的整数
func isTruthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	case float64:
		return b != 0
	case string:
		return b == "true" || b == "1" || b == "t"
	}
	return false
}

// expiredAt 无法解析的过期时间按已过期处理
func expiredAt(v interface{}, now time.Time) bool {
	switch t := v.(type) {
	case nil:
		return false
	case time.Time:
		return !t.After(now)
	case *time.Time:
		return t != nil && !t.After(now)
	case string:
		if t == "" {
			return false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return err != nil || !parsed.After(now)
	}
	return true
}

// ownRows 只保留属于 userID 的行
func ownRows(event realtime.ChangeEvent, userID string) realtime.ChangeEvent {
	filter := func(rows []map[string]interface{}) []map[string]interface{} {
		var out []map[string]interface{}
		for _, row := range rows {
			if owner, _ := row["user_id"].(string); owner == userID {
				out = append(out, row)
			}
		}
		return out
	}
	event.New = filter(event.New)
	event.Old = filter(event.Old)
	event.Filters = nil
	return event
}

// HandleRealtimeFunc 返回一个处理实时订阅请求的Gin处理函数
func HandleRealtimeFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewRealtimeController(ctx, container)

		switch method {
		case "subscribe":
			controller.Subscribe()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
