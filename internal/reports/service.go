package reports

import (
	"context"

	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/ariefcatur/assettrack/internal/orders"
)

// Snapshotter is satisfied by orders.Store.
type Snapshotter interface {
	Snapshot(ctx context.Context) (orders.Snapshot, error)
}

// ViewCache stores rendered views by generation and name. A miss returns
// false, nil. Invalidation moves readers to a new generation.
type ViewCache interface {
	ViewGeneration(ctx context.Context) (int64, error)
	GetView(ctx context.Context, gen int64, name string, dst any) (bool, error)
	SetView(ctx context.Context, gen int64, name string, v any) error
}

const (
	ViewInventorySummary = "inventory-summary"
	ViewComprehensive    = "comprehensive-orders"
	ViewPopularProducts  = "popular-products"
	ViewDashboard        = "dashboard"
)

type Service struct {
	Source Snapshotter
	Cache  ViewCache // optional
}

func (s *Service) InventorySummary(ctx context.Context) ([]ProductSummary, error) {
	return render(ctx, s, ViewInventorySummary, InventorySummary)
}

func (s *Service) ComprehensiveOrders(ctx context.Context, from, to string) ([]OrderGroup, error) {
	from, to, err := orders.NormalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	name := ViewComprehensive
	if from != "" || to != "" {
		name += ":" + from + ":" + to
	}
	return render(ctx, s, name, func(snap orders.Snapshot) []OrderGroup {
		return ComprehensiveOrders(snap, from, to)
	})
}

func (s *Service) PopularProducts(ctx context.Context) ([]ProductPopularity, error) {
	return render(ctx, s, ViewPopularProducts, PopularProducts)
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return render(ctx, s, ViewDashboard, BuildDashboard)
}

// render serves a view from the cache or builds it from a fresh snapshot.
// The generation is read before the snapshot so a view built from data older
// than the last invalidation is never served. Cache errors only cost a rebuild.
func render[T any](ctx context.Context, s *Service, name string, build func(orders.Snapshot) T) (T, error) {
	var (
		v        T
		gen      int64
		useCache = s.Cache != nil
	)
	if useCache {
		var err error
		if gen, err = s.Cache.ViewGeneration(ctx); err != nil {
			obs.Logger.Warn("view_cache_read_failed", "view", name, "error", err)
			useCache = false
		}
	}
	if useCache {
		hit, err := s.Cache.GetView(ctx, gen, name, &v)
		if err != nil {
			obs.Logger.Warn("view_cache_read_failed", "view", name, "error", err)
		}
		if hit {
			return v, nil
		}
	}

	snap, err := s.Source.Snapshot(ctx)
	if err != nil {
		return v, err
	}
	v = build(snap)

	if useCache {
		if err := s.Cache.SetView(ctx, gen, name, v); err != nil {
			obs.Logger.Warn("view_cache_write_failed", "view", name, "error", err)
		}
	}
	return v, nil
}
