package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// MaxUploadSize 单个文件上传上限 10MB
const MaxUploadSize = 10 << 20

// ErrFileTooLarge 文件过大
var ErrFileTooLarge = fmt.Errorf("%w: 文件不能超过10MB", ErrInvalidArgument)

// UploadFile 待上传的文件
type UploadFile struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

// storedObject 已写入对象存储的文件
type storedObject struct {
	Key string
	URL string
}

// putObject 写入对象存储并返回访问地址
func putObject(ctx context.Context, store storage.ObjectStore, prefix string, file UploadFile, imagesOnly bool) (*storedObject, error) {
	if store == nil {
		return nil, ErrStorageUnavailable
	}
	if file.Size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if imagesOnly && !strings.HasPrefix(file.ContentType, "image/") {
		return nil, fmt.Errorf("%w: 只允许上传图片", ErrInvalidArgument)
	}

	key := storage.BuildObjectKey(prefix, file.FileName)
	if err := store.Put(ctx, key, file.Reader, file.Size, file.ContentType); err != nil {
		return nil, err
	}
	url, err := store.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &storedObject{Key: key, URL: url}, nil
}

// removeObject 删除对象存储中的文件，失败只记录日志
func removeObject(ctx context.Context, store storage.ObjectStore, key string) {
	if store == nil || key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		logger.Warning("删除对象 %s 失败: %v", key, err)
	}
}
