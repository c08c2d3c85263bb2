// storage.go
package s3

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound возвращается, когда запрошенный ключ отсутствует в хранилище
var ErrObjectNotFound = errors.New("object not found")

// Object представляет скачиваемый объект S3 вместе с его метаданными
type Object struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentType   string
	ETag          string
	// Пользовательские метаданные объекта (x-amz-meta-*), ключи в нижнем регистре
	Metadata map[string]string
}

// ObjectInfo описывает объект в результатах листинга
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// PutOptions задает тип контента и метаданные при загрузке объекта
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ListInput описывает один запрос листинга с курсорной пагинацией
type ListInput struct {
	Prefix    string
	Delimiter string
	MaxKeys   int32
	// Непрозрачный курсор продолжения, выданный предыдущей страницей
	Cursor string
}

// ListResult представляет одну страницу листинга
type ListResult struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	Truncated      bool
	NextCursor     string
}

// CompletedPart представляет загруженную часть файла
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// Storage определяет интерфейс для работы с S3-совместимым хранилищем
type Storage interface {
	PutObject(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error)
	GetObject(ctx context.Context, key string) (*Object, error)
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, input ListInput) (*ListResult, error)
	// Методы multipart-загрузки
	CreateMultipartUpload(ctx context.Context, key string, opts PutOptions) (string, error)
	UploadPart(ctx context.Context, key string, uploadID string, partNumber int32, body io.Reader) (string, error)
	CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []CompletedPart) error
	AbortMultipartUpload(ctx context.Context, key string, uploadID string) error
}
