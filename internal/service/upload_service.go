package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"zipuploader/internal/config"
	"zipuploader/internal/domain"
	"zipuploader/internal/service/s3"
)

// Ограничение S3 на количество частей в одной multipart-сессии
const maxPartNumber = 10000

// Определение пользовательских ошибок
var (
	ErrMissingField      = errors.New("missing required field")
	ErrFileTooLarge      = errors.New("file size exceeds maximum allowed size")
	ErrNotZipFile        = errors.New("only .zip files are allowed")
	ErrInvalidPartNumber = errors.New("part number must be a positive integer")
	ErrEmptyParts        = errors.New("parts list must not be empty")
	ErrPartSequence      = errors.New("part numbers must form a gapless sequence starting at 1")
	ErrS3Operation       = errors.New("s3 operation failed")
)

// Разрешенные MIME-типы для ZIP-архивов
var allowedZipMime = map[string]bool{
	"application/zip":              true,
	"application/x-zip":            true,
	"application/x-zip-compressed": true,
	"multipart/x-zip":              true,
	"application/octet-stream":     true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9-_]`)

// UploadService реализует серверную сторону загрузки: простую загрузку
// одним запросом и жизненный цикл multipart-сессии поверх хранилища
type UploadService struct {
	storage       s3.Storage
	maxFileSize   int64
	simpleMaxSize int64
	keyPrefix     string
	now           func() time.Time
}

func NewUploadService(storage s3.Storage, cfg config.UploadConfig) *UploadService {
	return &UploadService{
		storage:       storage,
		maxFileSize:   cfg.MaxFileSize,
		simpleMaxSize: cfg.SimpleMaxSize,
		keyPrefix:     cfg.KeyPrefix,
		now:           time.Now,
	}
}

// SimpleUploadResult представляет результат загрузки одним запросом
type SimpleUploadResult struct {
	Key      string
	Filename string
	Size     int64
	ETag     string
}

// InitiateResult представляет созданную multipart-сессию
type InitiateResult struct {
	UploadID string
	Key      string
	Filename string
}

// SimpleUpload загружает файл целиком одним запросом в хранилище.
// Контрольная сумма, если передана, сохраняется в метаданных объекта
func (s *UploadService) SimpleUpload(ctx context.Context, filename string, size int64, contentType, checksum string, body io.Reader) (*SimpleUploadResult, error) {
	if filename == "" || body == nil {
		return nil, fmt.Errorf("%w: filename and file are required", ErrMissingField)
	}
	if size > s.simpleMaxSize {
		return nil, fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, s.simpleMaxSize)
	}
	if !isZipFile(filename, contentType) {
		return nil, ErrNotZipFile
	}

	key, sanitized := s.buildKey(filename)

	etag, err := s.storage.PutObject(ctx, key, body, s3.PutOptions{
		ContentType: normalizeContentType(contentType),
		Metadata:    checksumMetadata(checksum),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrS3Operation, err)
	}

	return &SimpleUploadResult{
		Key:      key,
		Filename: sanitized,
		Size:     size,
		ETag:     etag,
	}, nil
}

// Initiate создает multipart-сессию для файла.
// До первого успешного Initiate никакой очистки на стороне хранилища не требуется
func (s *UploadService) Initiate(ctx context.Context, filename string, size int64, contentType, checksum string) (*InitiateResult, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrMissingField)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size is required", ErrMissingField)
	}
	if size > s.maxFileSize {
		return nil, fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if !isZipFile(filename, contentType) {
		return nil, ErrNotZipFile
	}

	key, sanitized := s.buildKey(filename)

	uploadID, err := s.storage.CreateMultipartUpload(ctx, key, s3.PutOptions{
		ContentType: normalizeContentType(contentType),
		Metadata:    checksumMetadata(checksum),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrS3Operation, err)
	}

	return &InitiateResult{
		UploadID: uploadID,
		Key:      key,
		Filename: sanitized,
	}, nil
}

// UploadPart проверяет номер части и делегирует запись хранилищу
func (s *UploadService) UploadPart(ctx context.Context, key, uploadID string, partNumber int, body io.Reader) (string, error) {
	if key == "" || uploadID == "" {
		return "", fmt.Errorf("%w: key and uploadId are required", ErrMissingField)
	}
	if partNumber < 1 || partNumber > maxPartNumber {
		return "", fmt.Errorf("%w: got %d", ErrInvalidPartNumber, partNumber)
	}
	if body == nil {
		return "", fmt.Errorf("%w: chunk is required", ErrMissingField)
	}

	etag, err := s.storage.UploadPart(ctx, key, uploadID, int32(partNumber), body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrS3Operation, err)
	}

	return etag, nil
}

// Complete проверяет, что части образуют непрерывную последовательность
// 1..N без дыр и дублей, и собирает итоговый объект
func (s *UploadService) Complete(ctx context.Context, key, uploadID string, parts []domain.PartETag) error {
	if key == "" || uploadID == "" {
		return fmt.Errorf("%w: key and uploadId are required", ErrMissingField)
	}
	if len(parts) == 0 {
		return ErrEmptyParts
	}

	sorted := make([]domain.PartETag, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	completed := make([]s3.CompletedPart, 0, len(sorted))
	for i, part := range sorted {
		// Дубль или дыра дают номер, не равный позиции в отсортированном списке
		if part.PartNumber != i+1 {
			return fmt.Errorf("%w: part %d at position %d", ErrPartSequence, part.PartNumber, i+1)
		}
		completed = append(completed, s3.CompletedPart{
			PartNumber: part.PartNumber,
			ETag:       part.ETag,
		})
	}

	if err := s.storage.CompleteMultipartUpload(ctx, key, uploadID, completed); err != nil {
		return fmt.Errorf("%w: %v", ErrS3Operation, err)
	}

	return nil
}

// Abort освобождает ресурсы multipart-сессии на стороне хранилища.
// Ошибка хранилища пробрасывается: вызывающая сторона сама решает, глушить ли её
func (s *UploadService) Abort(ctx context.Context, key, uploadID string) error {
	if key == "" || uploadID == "" {
		return fmt.Errorf("%w: key and uploadId are required", ErrMissingField)
	}

	if err := s.storage.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		return fmt.Errorf("%w: %v", ErrS3Operation, err)
	}

	return nil
}

// Download возвращает объект вместе с метаданными для выдачи клиенту
func (s *UploadService) Download(ctx context.Context, key string) (*s3.Object, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrMissingField)
	}
	return s.storage.GetObject(ctx, key)
}

// Delete удаляет объект из хранилища.
// Удаление отсутствующего ключа — ошибка, а не тихий успех
func (s *UploadService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrMissingField)
	}
	if _, err := s.storage.HeadObject(ctx, key); err != nil {
		return err
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrS3Operation, err)
	}
	return nil
}

// buildKey нормализует имя файла и строит ключ, избегая коллизий
// за счет миллисекундной метки времени в префиксе имени
func (s *UploadService) buildKey(filename string) (string, string) {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")

	sanitized := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), base, ext)
	return s.keyPrefix + sanitized, sanitized
}

func isZipFile(filename, contentType string) bool {
	if strings.ToLower(filepath.Ext(filename)) == ".zip" {
		return true
	}
	return allowedZipMime[contentType]
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return "application/zip"
	}
	return contentType
}

func checksumMetadata(checksum string) map[string]string {
	if checksum == "" {
		return nil
	}
	return map[string]string{"sha256": strings.ToLower(checksum)}
}
