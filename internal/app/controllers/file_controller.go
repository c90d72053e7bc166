package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
)

// FileController 提供内存对象存储中的文件下载
type FileController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewFileController 创建一个新的文件控制器
func NewFileController(ctx *gin.Context, container *container.ServiceContainer) *FileController {
	return &FileController{
		Ctx:       ctx,
		Container: container,
	}
}

// GetFile 下载文件
// @Summary      下载文件
// @Description  仅在未配置 MinIO、使用内存对象存储时可用，重启后文件丢失
// @Tags         File
// @Param        key path string true "对象键"
// @Success      200
// @Failure      404  {object}  ErrorResponse
// @Router       /files/{key} [get]
func (c *FileController) GetFile() {
	store, ok := c.Container.GetStore().(*storage.MemoryStore)
	if !ok {
		response.Fail(c.Ctx, code.ErrStorageUnavailable, nil)
		return
	}

	key := strings.TrimPrefix(c.Ctx.Param("key"), "/")
	data, contentType, err := store.Get(key)
	if err != nil {
		response.Fail(c.Ctx, code.ErrRecordNotFound, nil)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// 覆盖全局中间件设置的 JSON 类型
	c.Ctx.Header("Content-Type", contentType)
	c.Ctx.Data(http.StatusOK, contentType, data)
}

// HandleFileFunc 返回一个处理文件请求的Gin处理函数
func HandleFileFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewFileController(ctx, container)

		switch method {
		case "getFile":
			controller.GetFile()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
