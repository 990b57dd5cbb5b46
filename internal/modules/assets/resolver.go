package assets

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mediavault/internal/domain"
)

// assetFetcher is the slice of the repository the resolver needs.
type assetFetcher interface {
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
}

// Resolver resolves reference chains one level deep: it fetches the summaries
// of the assets a chain names without following their own chains. Results are
// memoized per resolver so a detail view referencing the same asset several
// times issues one fetch. Not safe for concurrent use; each session owns one.
type Resolver struct {
	fetch assetFetcher
	cache map[string]*domain.AssetSummary
}

func NewResolver(fetch assetFetcher) *Resolver {
	return &Resolver{
		fetch: fetch,
		cache: make(map[string]*domain.AssetSummary),
	}
}

// Resolve returns summaries for the chain's references in chain order.
// References to since-deleted assets are silently omitted; a missing
// reference is not an error at read time.
func (r *Resolver) Resolve(ctx context.Context, meta *domain.PromptMeta) ([]domain.AssetSummary, error) {
	out := []domain.AssetSummary{}
	if meta == nil || meta.Kind != domain.PromptReferenceChain {
		return out, nil
	}

	for _, id := range meta.Refs {
		summary, cached := r.cache[id]
		if !cached {
			asset, err := r.fetch.GetByID(ctx, id)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				r.cache[id] = nil
				continue
			case err != nil:
				return nil, err
			}
			s := asset.Summary()
			summary = &s
			r.cache[id] = summary
		}
		if summary != nil {
			out = append(out, *summary)
		}
	}
	return out, nil
}

// Invalidate drops a cached entry after the asset is mutated or deleted.
func (r *Resolver) Invalidate(id string) {
	delete(r.cache, id)
}
