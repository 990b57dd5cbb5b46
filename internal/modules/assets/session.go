package assets

import (
	"context"
	"mime/multipart"

	"mediavault/internal/domain"
	"mediavault/internal/repository"
)

// Session scopes one caller's interaction with the store. It owns the
// reference resolver cache for that caller, and mutations routed through it
// drop the mutated asset's cache entry so later reads in the same session see
// fresh data. The HTTP layer creates one session per request.
type Session struct {
	svc      *Service
	resolver *Resolver
}

func (s *Service) NewSession() *Session {
	return &Session{
		svc:      s,
		resolver: NewResolver(repository.NewAssetRepository(s.db)),
	}
}

// AssetDetail is the full asset plus its one-level resolved reference chain
// and the assets that reference it in turn.
type AssetDetail struct {
	domain.Asset
	ResolvedReferences []domain.AssetSummary `json:"resolved_references"`
	Dependents         []domain.AssetSummary `json:"dependents"`
}

func (s *Session) Detail(ctx context.Context, id string) (*AssetDetail, error) {
	asset, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, asset.PromptMeta)
	if err != nil {
		return nil, err
	}

	dependents, err := repository.NewAssetRepository(s.svc.db).ListDependents(ctx, id)
	if err != nil {
		return nil, err
	}
	dependentSummaries := make([]domain.AssetSummary, 0, len(dependents))
	for i := range dependents {
		dependentSummaries = append(dependentSummaries, dependents[i].Summary())
	}

	return &AssetDetail{
		Asset:              *asset,
		ResolvedReferences: resolved,
		Dependents:         dependentSummaries,
	}, nil
}

func (s *Session) Create(ctx context.Context, in CreateAssetInput) (*domain.Asset, error) {
	return s.svc.Create(ctx, in)
}

func (s *Session) Update(ctx context.Context, id string, in UpdateAssetInput) (*domain.Asset, error) {
	asset, err := s.svc.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.resolver.Invalidate(id)
	return asset, nil
}

func (s *Session) ReplaceBinary(ctx context.Context, id string, media, thumbnail *multipart.FileHeader) (*domain.Asset, error) {
	asset, err := s.svc.ReplaceBinary(ctx, id, media, thumbnail)
	if err != nil {
		return nil, err
	}
	s.resolver.Invalidate(id)
	return asset, nil
}

func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.svc.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.Invalidate(id)
	return nil
}
