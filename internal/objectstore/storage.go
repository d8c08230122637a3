package objectstore

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/metrics"
)

// Storage 对象存储后端
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	// URL 返回对外可访问的路径
	URL(key string) string
	Backend() string
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader 头像上传，校验大小与类型后写入 Storage，实现 wizard.Uploader
type Uploader struct {
	storage  Storage
	maxBytes int64
	prefix   string
	now      func() time.Time
}

var _ wizard.Uploader = (*Uploader)(nil)

func NewUploader(storage Storage, maxBytes int64) *Uploader {
	return &Uploader{
		storage:  storage,
		maxBytes: maxBytes,
		prefix:   "profiles",
		now:      time.Now,
	}
}

func (u *Uploader) Upload(ctx context.Context, file wizard.ImageFile) (wizard.UploadResult, error) {
	if file.Size() == 0 {
		return wizard.UploadResult{}, errors.UploadMissingFile
	}
	if u.maxBytes > 0 && int64(file.Size()) > u.maxBytes {
		return wizard.UploadResult{}, errors.UploadTooLarge
	}

	contentType := detectType(file)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return wizard.UploadResult{}, errors.UploadUnsupported
	}

	key := path.Join(u.prefix, u.now().UTC().Format("2006/01"), uuid.NewString()+ext)
	if err := u.storage.Put(ctx, key, contentType, file.Data); err != nil {
		logger.Logger.Error("Failed to store uploaded file",
			zap.String("backend", u.storage.Backend()),
			zap.String("key", key),
			zap.Error(err),
		)
		return wizard.UploadResult{}, err
	}

	metrics.RecordUpload(ctx, u.storage.Backend(), int64(file.Size()))
	return wizard.UploadResult{
		OK:   true,
		Item: []wizard.UploadedFile{{Path: u.storage.URL(key)}},
	}, nil
}

// detectType 以文件内容为准，客户端声明的类型只作参考
func detectType(file wizard.ImageFile) string {
	sniffed := http.DetectContentType(file.Data)
	if idx := strings.Index(sniffed, ";"); idx > 0 {
		sniffed = sniffed[:idx]
	}
	if sniffed == "application/octet-stream" && file.ContentType != "" {
		return strings.ToLower(file.ContentType)
	}
	return sniffed
}
