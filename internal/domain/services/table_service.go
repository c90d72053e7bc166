package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

// 列名、表名只允许小写字母、数字和下划线
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// 返回结果中始终剔除的敏感列
var sensitiveColumns = []string{"password", "code_hash"}

// 不开放给通用接口的表
var hiddenTables = map[string]bool{
	"otp_codes":     true,
	"user_sessions": true,
}

// TableQuery 通用查询条件，过滤条件之间为 AND 关系且只支持等值比较
type TableQuery struct {
	Filters   map[string]interface{}
	Select    []string
	OrderBy   string
	Ascending bool
	Limit     int
	Offset    int
}

// InterfaceTableService 通用数据表访问接口
type InterfaceTableService interface {
	FetchFromTable(ctx context.Context, table string, query TableQuery) ([]map[string]interface{}, error)
	InsertIntoTable(ctx context.Context, table string, row map[string]interface{}) (map[string]interface{}, error)
	UpdateInTable(ctx context.Context, table string, filters, values map[string]interface{}) ([]map[string]interface{}, error)
	DeleteFromTable(ctx context.Context, table string, filters map[string]interface{}) (int64, error)
	SubscribeToTable(table string, handler realtime.Handler) (func(), error)
	Tables() []string
}

// TableService 基于 GORM 的通用表访问实现，写入成功后向 Hub 发布变更事件
type TableService struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	schemas map[string]*schema.Schema
}

// NewTableService 创建通用表访问服务，注册全部业务表
func NewTableService(db *gorm.DB, hub *realtime.Hub) InterfaceTableService {
	s := &TableService{
		DB:      db,
		Hub:     hub,
		schemas: make(map[string]*schema.Schema),
	}
	cache := &sync.Map{}
	for _, model := range models.AllModels() {
		sch, err := schema.Parse(model, cache, db.NamingStrategy)
		if err != nil {
			panic(fmt.Sprintf("解析模型 %T 失败: %v", model, err))
		}
		if hiddenTables[sch.Table] {
			continue
		}
		s.schemas[sch.Table] = sch
	}
	return s
}

// 1 FetchFromTable 按等值条件查询，支持列选择、排序和分页
func (s *TableService) FetchFromTable(ctx context.Context, table string, query TableQuery) ([]map[string]interface{}, error) {
	sch, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	filters, err := coerceColumns(sch, query.Filters)
	if err != nil {
		return nil, err
	}

	tx := s.DB.WithContext(ctx).Table(sch.Table)
	if len(query.Select) > 0 {
		for _, col := range query.Select {
			if _, err := lookupField(sch, col); err != nil {
				return nil, err
			}
		}
		tx = tx.Select(query.Select)
	}
	if len(filters) > 0 {
		tx = tx.Where(filters)
	}
	if query.OrderBy != "" {
		if _, err := lookupField(sch, query.OrderBy); err != nil {
			return nil, err
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: query.OrderBy}, Desc: !query.Ascending})
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}
	if query.Offset > 0 {
		tx = tx.Offset(query.Offset)
	}

	rows := make([]map[string]interface{}, 0)
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return stripSensitive(rows), nil
}

// 2 InsertIntoTable 插入一行并返回数据库中的完整记录
func (s *TableService) InsertIntoTable(ctx context.Context, table string, row map[string]interface{}) (map[string]interface{}, error) {
	sch, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, ErrEmptyValues
	}
	values, err := coerceColumns(sch, row)
	if err != nil {
		return nil, err
	}

	record := reflect.New(sch.ModelType)
	for col, v := range values {
		field := sch.FieldsByDBName[col]
		if v == nil {
			continue
		}
		if err := field.Set(ctx, record.Elem(), v); err != nil {
			return nil, fmt.Errorf("%w: 字段 %s 类型不匹配", ErrInvalidArgument, col)
		}
	}
	if err := s.DB.WithContext(ctx).Create(record.Interface()).Error; err != nil {
		return nil, err
	}

	pk := sch.PrioritizedPrimaryField
	pkValue, _ := pk.ValueOf(ctx, record.Elem())
	created, err := s.findByPrimaryKeys(ctx, sch, []interface{}{pkValue})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	s.publish(realtime.ChangeEvent{Table: sch.Table, Type: realtime.EventInsert, New: created})
	return created[0], nil
}

// 3 UpdateInTable 更新匹配过滤条件的全部行，返回更新后的记录
func (s *TableService) UpdateInTable(ctx context.Context, table string, filters, values map[string]interface{}) ([]map[string]interface{}, error) {
	sch, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, ErrFilterRequired
	}
	if len(values) == 0 {
		return nil, ErrEmptyValues
	}
	where, err := coerceColumns(sch, filters)
	if err != nil {
		return nil, err
	}
	assignments, err := coerceColumns(sch, values)
	if err != nil {
		return nil, err
	}
	pk := sch.PrioritizedPrimaryField
	if _, ok := assignments[pk.DBName]; ok {
		return nil, fmt.Errorf("%w: 不允许修改主键", ErrInvalidColumn)
	}
	if f := sch.LookUpField("updated_at"); f != nil {
		if _, ok := assignments["updated_at"]; !ok {
			assignments["updated_at"] = time.Now()
		}
	}

	old, err := s.findRows(ctx, sch, where)
	if err != nil {
		return nil, err
	}
	if len(old) == 0 {
		return []map[string]interface{}{}, nil
	}
	keys := primaryKeys(pk.DBName, old)

	if err := s.DB.WithContext(ctx).Table(sch.Table).
		Where(clause.IN{Column: clause.Column{Name: pk.DBName}, Values: keys}).
		Updates(assignments).Error; err != nil {
		return nil, err
	}

	updated, err := s.findByPrimaryKeys(ctx, sch, keys)
	if err != nil {
		return nil, err
	}
	s.publish(realtime.ChangeEvent{
		Table:   sch.Table,
		Type:    realtime.EventUpdate,
		New:     updated,
		Old:     stripSensitive(old),
		Filters: filters,
	})
	return updated, nil
}

// 4 DeleteFromTable 删除匹配过滤条件的全部行，返回删除的行数
func (s *TableService) DeleteFromTable(ctx context.Context, table string, filters map[string]interface{}) (int64, error) {
	sch, err := s.lookup(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrFilterRequired
	}
	where, err := coerceColumns(sch, filters)
	if err != nil {
		return 0, err
	}

	old, err := s.findRows(ctx, sch, where)
	if err != nil {
		return 0, err
	}
	if len(old) == 0 {
		return 0, nil
	}
	pk := sch.PrioritizedPrimaryField
	keys := primaryKeys(pk.DBName, old)

	result := s.DB.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: pk.DBName}, Values: keys}).
		Delete(reflect.New(sch.ModelType).Interface())
	if result.Error != nil {
		return 0, result.Error
	}

	s.publish(realtime.ChangeEvent{
		Table:   sch.Table,
		Type:    realtime.EventDelete,
		Old:     stripSensitive(old),
		Filters: filters,
	})
	return result.RowsAffected, nil
}

// 5 SubscribeToTable 订阅表变更，返回取消订阅函数
func (s *TableService) SubscribeToTable(table string, handler realtime.Handler) (func(), error) {
	if table != realtime.AllTables {
		if _, err := s.lookup(table); err != nil {
			return nil, err
		}
	}
	if s.Hub == nil {
		return func() {}, nil
	}
	_, unsubscribe := s.Hub.Subscribe(table, handler)
	return unsubscribe, nil
}

// 6 Tables 返回开放的表名列表
func (s *TableService) Tables() []string {
	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *TableService) lookup(table string) (*schema.Schema, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	sch, ok := s.schemas[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return sch, nil
}

func (s *TableService) findRows(ctx context.Context, sch *schema.Schema, where map[string]interface{}) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0)
	err := s.DB.WithContext(ctx).Table(sch.Table).Where(where).Find(&rows).Error
	return rows, err
}

func (s *TableService) findByPrimaryKeys(ctx context.Context, sch *schema.Schema, keys []interface{}) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0)
	pk := sch.PrioritizedPrimaryField.DBName
	err := s.DB.WithContext(ctx).Table(sch.Table).
		Where(clause.IN{Column: clause.Column{Name: pk}, Values: keys}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: pk}}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return stripSensitive(rows), nil
}

func (s *TableService) publish(event realtime.ChangeEvent) {
	if s.Hub != nil {
		s.Hub.Publish(event)
	}
}

func lookupField(sch *schema.Schema, col string) (*schema.Field, error) {
	if !identifierPattern.MatchString(col) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidColumn, col)
	}
	field, ok := sch.FieldsByDBName[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidColumn, col)
	}
	return field, nil
}

// coerceColumns 校验列名并把字符串等宽松输入转换为列对应的类型
func coerceColumns(sch *schema.Schema, in map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(in))
	for col, v := range in {
		field, err := lookupField(sch, col)
		if err != nil {
			return nil, err
		}
		cv, err := coerceValue(field, v)
		if err != nil {
			return nil, fmt.Errorf("%w: 字段 %s 的值无效", ErrInvalidArgument, col)
		}
		out[col] = cv
	}
	return out, nil
}

func coerceValue(field *schema.Field, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if field.DBName == "password" {
		if raw, ok := v.(string); ok && !utils.IsHashed(raw) {
			return utils.HashPassword(raw)
		}
	}

	switch val := v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case string:
		switch field.DataType {
		case schema.Int:
			return strconv.ParseInt(val, 10, 64)
		case schema.Uint:
			return strconv.ParseUint(val, 10, 64)
		case schema.Float:
			return strconv.ParseFloat(val, 64)
		case schema.Bool:
			return strconv.ParseBool(val)
		case schema.Time:
			return parseTime(val)
		}
	case float64:
		switch field.DataType {
		case schema.Int, schema.Uint:
			// JSON 数字都解码为 float64，整数列不接受小数
			if val != math.Trunc(val) || math.IsInf(val, 0) {
				return nil, fmt.Errorf("%v 不是整数", val)
			}
			if field.DataType == schema.Uint {
				if val < 0 {
					return nil, fmt.Errorf("%v 不能为负数", val)
				}
				return uint64(val), nil
			}
			return int64(val), nil
		}
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %s", s)
}

func primaryKeys(pk string, rows []map[string]interface{}) []interface{} {
	keys := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row[pk])
	}
	return keys
}

func stripSensitive(rows []map[string]interface{}) []map[string]interface{} {
	for _, row := range rows {
		for _, col := range sensitiveColumns {
			delete(row, col)
		}
	}
	return rows
}
