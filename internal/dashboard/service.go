package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tillpoint/tillpoint/internal/catalog"
)

// RepositoryPort defines the rollup queries the service depends on.
type RepositoryPort interface {
	SalesSince(ctx context.Context, t time.Time) (float64, int64, error)
	LowStockCount(ctx context.Context) (int64, error)
	Outstanding(ctx context.Context) (float64, int64, error)
	LowStockProducts(ctx context.Context) ([]catalog.Product, error)
}

// Service computes dashboard views. No caching: every call hits the stores.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Summary aggregates today's sales, low-stock products and outstanding
// credit. The three independent queries run concurrently.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var summary Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := s.repo.SalesSince(ctx, startOfDay)
		if err != nil {
			return err
		}
		summary.TotalSalesToday = total
		summary.InvoiceCountToday = count
		return nil
	})
	g.Go(func() error {
		count, err := s.repo.LowStockCount(ctx)
		if err != nil {
			return err
		}
		summary.LowStockCount = count
		return nil
	})
	g.Go(func() error {
		total, count, err := s.repo.Outstanding(ctx)
		if err != nil {
			return err
		}
		summary.OutstandingTotal = total
		summary.OutstandingCustomers = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// LowStock lists products at or below their minimum, lowest stock first.
func (s *Service) LowStock(ctx context.Context) ([]catalog.Product, error) {
	return s.repo.LowStockProducts(ctx)
}
