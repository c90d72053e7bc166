package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// 等值过滤参数前缀，如 ?eq.status=available
const filterPrefix = "eq."

// 单次查询的最大行数
const maxTableRows = 1000

// InterfaceTableController 定义通用数据表控制器接口
type InterfaceTableController interface {
	GetTables()
	FetchRows()
	InsertRow()
	UpdateRows()
	DeleteRows()
}

// TableController 管理员通过表名直接读写数据
type TableController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewTableController 创建一个新的数据表控制器
func NewTableController(ctx *gin.Context, container *container.ServiceContainer) *TableController {
	return &TableController{
		Ctx:       ctx,
		Container: container,
	}
}

func (c *TableController) tableService() services.InterfaceTableService {
	return c.Container.GetService("table").(services.InterfaceTableService)
}

// filters 从查询参数中提取 eq.<列名> 条件
func (c *TableController) filters() map[string]interface{} {
	filters := make(map[string]interface{})
	for key, values := range c.Ctx.Request.URL.Query() {
		if !strings.HasPrefix(key, filterPrefix) || len(values) == 0 {
			continue
		}
		filters[strings.TrimPrefix(key, filterPrefix)] = values[0]
	}
	return filters
}

// parseQuery 解析 select、order、limit、offset 参数
func (c *TableController) parseQuery() (services.TableQuery, bool) {
	query := services.TableQuery{Filters: c.filters()}

	if sel := c.Ctx.Query("select"); sel != "" && sel != "*" {
		for _, col := range strings.Split(sel, ",") {
			if col = strings.TrimSpace(col); col != "" {
				query.Select = append(query.Select, col)
			}
		}
	}

	// order=列名 或 order=列名.asc / 列名.desc，默认升序
	if order := c.Ctx.Query("order"); order != "" {
		query.Ascending = true
		col, dir, found := strings.Cut(order, ".")
		if found {
			switch dir {
			case "asc":
			case "desc":
				query.Ascending = false
			default:
				response.ParamError(c.Ctx, "排序方向只能是asc或desc")
				return query, false
			}
		}
		query.OrderBy = col
	}

	var err error
	if v := c.Ctx.Query("limit"); v != "" {
		if query.Limit, err = strconv.Atoi(v); err != nil || query.Limit < 0 {
			response.ParamError(c.Ctx, "limit必须是非负整数")
			return query, false
		}
	}
	if query.Limit == 0 || query.Limit > maxTableRows {
		query.Limit = maxTableRows
	}
	if v := c.Ctx.Query("offset"); v != "" {
		if query.Offset, err = strconv.Atoi(v); err != nil || query.Offset < 0 {
			response.ParamError(c.Ctx, "offset必须是非负整数")
			return query, false
		}
	}
	return query, true
}

// GetTables 可访问的数据表
// @Summary      数据表列表
// @Tags         Table
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/tables [get]
func (c *TableController) GetTables() {
	response.Success(c.Ctx, gin.H{"tables": c.tableService().Tables()})
}

// FetchRows 查询数据表
// @Summary      查询数据表
// @Description  过滤条件使用 eq.列名=值，多个条件为 AND 关系
// @Tags         Table
// @Produce      json
// @Param        table path string true "表名"
// @Param        select query string false "返回的列，逗号分隔"
// @Param        order query string false "排序，如 created_at.desc"
// @Param        limit query int false "最大行数"
// @Param        offset query int false "跳过的行数"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/tables/{table} [get]
func (c *TableController) FetchRows() {
	query, ok := c.parseQuery()
	if !ok {
		return
	}

	rows, err := c.tableService().FetchFromTable(c.Ctx.Request.Context(), c.Ctx.Param("table"), query)
	if err != nil {
		handleServiceError(c.Ctx, err, "查询数据失败")
		return
	}
	response.Success(c.Ctx, rows)
}

// InsertRow 插入一行
// @Summary      插入数据
// @Tags         Table
// @Accept       json
// @Produce      json
// @Param        table path string true "表名"
// @Param        request body map[string]interface{} true "列名到值的映射"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/tables/{table} [post]
func (c *TableController) InsertRow() {
	var row map[string]interface{}
	if err := c.Ctx.ShouldBindJSON(&row); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	table := c.Ctx.Param("table")
	created, err := c.tableService().InsertIntoTable(c.Ctx.Request.Context(), table, row)
	if err != nil {
		handleServiceError(c.Ctx, err, "插入数据失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "insert", table, created["id"], row)
	purgePublicCache(publicPathFor(table)...)
	response.Created(c.Ctx, created)
}

// UpdateRows 按条件更新
// @Summary      更新数据
// @Description  必须至少带一个 eq.列名 条件
// @Tags         Table
// @Accept       json
// @Produce      json
// @Param        table path string true "表名"
// @Param        request body map[string]interface{} true "要更新的列"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/tables/{table} [patch]
func (c *TableController) UpdateRows() {
	var values map[string]interface{}
	if err := c.Ctx.ShouldBindJSON(&values); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	table := c.Ctx.Param("table")
	filters := c.filters()
	rows, err := c.tableService().UpdateInTable(c.Ctx.Request.Context(), table, filters, values)
	if err != nil {
		handleServiceError(c.Ctx, err, "更新数据失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", table, nil, gin.H{"filters": filters, "values": values, "rows": len(rows)})
	purgePublicCache(publicPathFor(table)...)
	response.Success(c.Ctx, rows)
}

// DeleteRows 按条件删除
// @Summary      删除数据
// @Description  必须至少带一个 eq.列名 条件
// @Tags         Table
// @Produce      json
// @Param        table path string true "表名"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/tables/{table} [delete]
func (c *TableController) DeleteRows() {
	table := c.Ctx.Param("table")
	filters := c.filters()
	deleted, err := c.tableService().DeleteFromTable(c.Ctx.Request.Context(), table, filters)
	if err != nil {
		handleServiceError(c.Ctx, err, "删除数据失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete", table, nil, gin.H{"filters": filters, "rows": deleted})
	purgePublicCache(publicPathFor(table)...)
	response.Success(c.Ctx, gin.H{"deleted": deleted})
}

// publicPathFor 数据表对应的公开接口缓存前缀
func publicPathFor(table string) []string {
	switch table {
	case "units", "unit_photos":
		return []string{publicUnitsPath}
	case "facilities":
		return []string{publicFacilitiesPath}
	case "gallery_photos":
		return []string{publicGalleryPath}
	case "announcements":
		return []string{publicAnnouncementsPath}
	}
	return nil
}

// HandleTableFunc 返回一个处理通用数据表请求的Gin处理函数
func HandleTableFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewTableController(ctx, container)

		switch method {
		case "getTables":
			controller.GetTables()
		case "fetchRows":
			controller.FetchRows()
		case "insertRow":
			controller.InsertRow()
		case "updateRows":
			controller.UpdateRows()
		case "deleteRows":
			controller.DeleteRows()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
