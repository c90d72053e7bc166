package services

import (
	"encoding/json"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// publishChange 业务服务直接写库后，向 Hub 补发对应的变更事件
func publishChange(hub *realtime.Hub, table string, typ realtime.EventType, records ...interface{}) {
	if hub == nil {
		return
	}
	rows := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			logger.Warning("[Realtime] 转换 %s 变更记录失败: %v", table, err)
			continue
		}
		rows = append(rows, row)
	}
	event := realtime.ChangeEvent{Table: table, Type: typ}
	if typ == realtime.EventDelete {
		event.Old = stripSensitive(rows)
	} else {
		event.New = stripSensitive(rows)
	}
	hub.Publish(event)
}

func toRow(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	row := map[string]interface{}{}
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, err
	}
	return row, nil
}
