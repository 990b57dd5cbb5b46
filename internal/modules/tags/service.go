package tags

import (
	"context"

	"mediavault/internal/domain"
	"mediavault/internal/repository"
)

type Service struct {
	repo repository.TagRepository
}

func NewService(repo repository.TagRepository) *Service {
	return &Service{repo: repo}
}

// Usage lists every known tag with its asset count, ordered by name.
func (s *Service) Usage(ctx context.Context) ([]domain.TagUsage, error) {
	return s.repo.Usage(ctx)
}
