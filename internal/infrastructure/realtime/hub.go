package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// EventType 数据变更类型
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// AllTables 订阅全部表的通配符
const AllTables = "*"

// ChangeEvent 表数据变更事件
type ChangeEvent struct {
	Table   string                   `json:"table"`
	Type    EventType                `json:"type"`
	New     []map[string]interface{} `json:"new,omitempty"`
	Old     []map[string]interface{} `json:"old,omitempty"`
	Filters map[string]interface{}   `json:"filters,omitempty"`
	At      time.Time                `json:"at"`
}

// Handler 变更事件处理函数
type Handler func(ChangeEvent)

type subscription struct {
	id      string
	table   string
	handler Handler
}

// Hub 进程内的变更事件分发中心
// 事件按发布顺序同步分发给订阅者，不做批量和背压处理
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscription
	// 保持订阅顺序，分发时按订阅先后调用
	order []string
}

// NewHub 创建事件分发中心
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscription)}
}

// Subscribe 订阅某张表的变更，table 为 "*" 时订阅全部表
func (h *Hub) Subscribe(table string, handler Handler) (string, func()) {
	id := uuid.NewString()
	h.mu.Lock()
	h.subs[id] = &subscription{id: id, table: table, handler: handler}
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return id, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
	for i, sid := range h.order {
		if sid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Publish 分发事件，单个处理函数 panic 不影响其他订阅者
func (h *Hub) Publish(event ChangeEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.order))
	for _, id := range h.order {
		sub := h.subs[id]
		if sub.table == event.Table || sub.table == AllTables {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.dispatch(sub, event)
	}
}

func (h *Hub) dispatch(sub *subscription, event ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Realtime] 订阅者 %s 处理 %s 事件时发生panic: %v", sub.id, event.Table, r)
		}
	}()
	sub.handler(event)
}

// SubscriberCount 当前订阅数量
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
