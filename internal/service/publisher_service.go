package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"zipuploader/internal/domain"
	"zipuploader/internal/repository"
)

// ErrInvalidPublisherName возвращается, когда после нормализации
// от имени издателя ничего не остается
var ErrInvalidPublisherName = errors.New("publisher name is invalid")

var publisherNameChars = regexp.MustCompile(`[^a-z0-9-_]`)

// PublisherService ведет каталог издателей
type PublisherService struct {
	repo *repository.PublisherRepository
}

func NewPublisherService(repo *repository.PublisherRepository) *PublisherService {
	return &PublisherService{repo: repo}
}

// Create регистрирует издателя. Повторная регистрация того же
// нормализованного имени обновляет отображаемое имя
func (s *PublisherService) Create(ctx context.Context, displayName string) (*domain.Publisher, error) {
	normalized := NormalizePublisherName(displayName)
	if normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPublisherName, displayName)
	}

	publisher := &domain.Publisher{
		NormalizedName: normalized,
		DisplayName:    strings.TrimSpace(displayName),
		GUID:           uuid.New(),
	}

	if err := s.repo.Create(ctx, publisher); err != nil {
		return nil, err
	}

	return publisher, nil
}

func (s *PublisherService) Get(ctx context.Context, normalizedName string) (*domain.Publisher, error) {
	return s.repo.GetByNormalizedName(ctx, normalizedName)
}

func (s *PublisherService) List(ctx context.Context) ([]domain.Publisher, error) {
	return s.repo.List(ctx)
}

// NormalizePublisherName приводит имя к нижнему регистру и заменяет
// небезопасные символы на подчеркивание
func NormalizePublisherName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = publisherNameChars.ReplaceAllString(normalized, "_")
	return strings.Trim(normalized, "_")
}
