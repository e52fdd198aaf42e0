package services

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Cats.List(ctx)
}

func (s *CatalogService) Featured(ctx context.Context, n int) ([]domain.Product, error) {
	return s.Prods.Featured(ctx, n)
}

// ProductBySlug maps a missing product to ErrProductNotFound.
func (s *CatalogService) ProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	p, err := s.Prods.BySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	return p, err
}

type ShopQuery struct {
	Q        string
	Category string
	Featured bool
	Sort     string
	Page     int
	PageSize int
}

func (s *CatalogService) Search(ctx context.Context, q ShopQuery) ([]domain.Product, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 12
	}
	offset := (q.Page - 1) * q.PageSize
	return s.Prods.Search(ctx, repos.ProductFilter{
		Q:            q.Q,
		CategorySlug: q.Category,
		FeaturedOnly: q.Featured,
		Sort:         q.Sort,
		Limit:        q.PageSize,
		Offset:       offset,
	})
}
