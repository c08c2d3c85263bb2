package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"zipuploader/internal/config"
	"zipuploader/internal/domain"
	"zipuploader/internal/service/s3"
)

const (
	listMaxLimit   = 1000
	searchMaxLimit = 500
)

// ErrPrefixOutsideRoot возвращается при попытке листинга вне разрешенного
// корня. Такой префикс отклоняется, а не молча заменяется на корень
var ErrPrefixOutsideRoot = errors.New("prefix is outside the allowed root")

// ListingService реализует курсорный листинг каталога и рекурсивный
// поиск по подстроке поверх хранилища
type ListingService struct {
	storage        s3.Storage
	rootPrefix     string
	maxSearchPages int
	searchPageSize int32
}

func NewListingService(storage s3.Storage, cfg config.ListingConfig) *ListingService {
	return &ListingService{
		storage:        storage,
		rootPrefix:     cfg.RootPrefix,
		maxSearchPages: cfg.MaxSearchPages,
		searchPageSize: cfg.SearchPageSize,
	}
}

// List возвращает одну страницу листинга: общие подпрефиксы становятся
// папками, листовые объекты — файлами. Курсор пробрасывается непрозрачно
func (s *ListingService) List(ctx context.Context, prefix, cursor string, limit int) (*domain.ListingPage, error) {
	normalized, err := s.normalizePrefix(prefix)
	if err != nil {
		return nil, err
	}

	limit = clampLimit(limit, listMaxLimit)

	result, err := s.storage.ListObjects(ctx, s3.ListInput{
		Prefix:    normalized,
		Delimiter: "/",
		MaxKeys:   int32(limit),
		Cursor:    cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrS3Operation, err)
	}

	page := &domain.ListingPage{
		Prefix:    normalized,
		Folders:   []string{},
		Files:     []domain.FileInfo{},
		Truncated: result.Truncated,
	}
	if result.Truncated {
		page.Cursor = result.NextCursor
	}

	page.Folders = append(page.Folders, result.CommonPrefixes...)

	for _, obj := range result.Objects {
		// Пропускаем маркеры папок
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		page.Files = append(page.Files, fileInfo(obj))
	}

	return page, nil
}

// Search выполняет рекурсивный листинг без разделителя, фильтруя ключи
// по подстроке без учета регистра. Хранилище навязывает свой размер
// страницы, поэтому поиск крутит цикл по страницам, пока не наберет
// limit совпадений, не исчерпает ключи либо не упрется в потолок
// просмотренных страниц, ограничивающий худшую задержку
func (s *ListingService) Search(ctx context.Context, prefix, query, cursor string, limit int) (*domain.SearchResult, error) {
	normalized, err := s.normalizePrefix(prefix)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	result := &domain.SearchResult{
		Prefix: normalized,
		Query:  query,
		Files:  []domain.FileInfo{},
	}

	// Пустой запрос не ходит в хранилище
	if query == "" {
		return result, nil
	}

	limit = clampLimit(limit, searchMaxLimit)
	needle := strings.ToLower(query)

	// Курсор поиска несет курсор страницы хранилища и число совпадений
	// этой страницы, уже отданных клиенту: лимит может набраться посреди
	// страницы, и возобновление не должно ни терять, ни повторять ключи
	pageCursor, skip := decodeSearchCursor(cursor)
	for pagesScanned := 0; pagesScanned < s.maxSearchPages; pagesScanned++ {
		page, err := s.storage.ListObjects(ctx, s3.ListInput{
			Prefix:  normalized,
			MaxKeys: s.searchPageSize,
			Cursor:  pageCursor,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrS3Operation, err)
		}

		matchesSeen := 0
		for _, obj := range page.Objects {
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			if !strings.Contains(strings.ToLower(obj.Key), needle) {
				continue
			}
			matchesSeen++
			// Уже отданные на прошлом запросе совпадения этой страницы
			if matchesSeen <= skip {
				continue
			}
			if len(result.Files) < limit {
				result.Files = append(result.Files, fileInfo(obj))
				continue
			}

			// Лимит набран, а на странице остались совпадения:
			// курсор указывает внутрь этой же страницы
			result.Truncated = true
			result.Cursor = encodeSearchCursor(pageCursor, matchesSeen-1)
			return result, nil
		}
		skip = 0

		if !page.Truncated {
			return result, nil
		}
		if len(result.Files) >= limit {
			result.Truncated = true
			result.Cursor = encodeSearchCursor(page.NextCursor, 0)
			return result, nil
		}
		pageCursor = page.NextCursor

		// Потолок страниц достигнут: возвращаем найденное с курсором продолжения
		if pagesScanned == s.maxSearchPages-1 {
			result.Truncated = true
			result.Cursor = encodeSearchCursor(pageCursor, 0)
		}
	}

	return result, nil
}

// encodeSearchCursor собирает курсор поиска из курсора хранилища
// и числа уже выданных совпадений его страницы
func encodeSearchCursor(storeCursor string, skip int) string {
	return fmt.Sprintf("%d:%s", skip, storeCursor)
}

// decodeSearchCursor разбирает курсор поиска. Строка без числового
// префикса трактуется как голый курсор хранилища
func decodeSearchCursor(cursor string) (string, int) {
	if cursor == "" {
		return "", 0
	}
	head, tail, ok := strings.Cut(cursor, ":")
	if !ok {
		return cursor, 0
	}
	skip, err := strconv.Atoi(head)
	if err != nil || skip < 0 {
		return cursor, 0
	}
	return tail, skip
}

// normalizePrefix требует, чтобы префикс лежал под корневым сегментом,
// и приводит его к виду с завершающим слешем
func (s *ListingService) normalizePrefix(prefix string) (string, error) {
	if prefix == "" {
		return s.rootPrefix, nil
	}
	// Слеш добавляется до проверки корня, чтобы голый корень
	// ("feeds") проходил, а "feedsX" — нет
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(prefix, s.rootPrefix) {
		return "", fmt.Errorf("%w: %q must start with %q", ErrPrefixOutsideRoot, prefix, s.rootPrefix)
	}
	return prefix, nil
}

func clampLimit(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}

func fileInfo(obj s3.ObjectInfo) domain.FileInfo {
	return domain.FileInfo{
		Key:          obj.Key,
		Filename:     path.Base(obj.Key),
		Size:         obj.Size,
		LastModified: obj.LastModified,
		ETag:         obj.ETag,
	}
}
