package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type ProductRepo struct{ db sqlx.ExtContext }

func NewProductRepo(db sqlx.ExtContext) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    p.id, COALESCE(p.category_id,'') AS category_id, p.name, p.slug,
    COALESCE(p.description,'') AS description, p.price, p.stock, p.is_featured,
    COALESCE(p.images_json,'[]') AS images_json, COALESCE(p.created_at,'') AS created_at`

// Sort keys accepted by Search. Anything else falls back to newest.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

var sortClause = map[string]string{
	SortNewest:    `p.created_at DESC, p.id`,
	SortPriceAsc:  `p.price ASC, p.id`,
	SortPriceDesc: `p.price DESC, p.id`,
	SortName:      `LOWER(p.name) ASC, p.id`,
}

type ProductFilter struct {
	Q            string // case-insensitive name pattern
	CategorySlug string
	FeaturedOnly bool
	Sort         string
	Limit        int
	Offset       int
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, r.db, &p, r.db.Rebind(`SELECT `+productCols+` FROM products p WHERE p.id = ?`), id)
	return p, err
}

func (r *ProductRepo) BySlug(ctx context.Context, slug string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, r.db, &p, r.db.Rebind(`SELECT `+productCols+` FROM products p WHERE p.slug = ?`), slug)
	return p, err
}

func (r *ProductRepo) Search(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Q != "" {
		where = append(where, `LOWER(p.name) LIKE ?`)
		args = append(args, "%"+strings.ToLower(f.Q)+"%")
	}
	if f.CategorySlug != "" {
		where = append(where, `p.category_id = (SELECT id FROM categories WHERE slug = ?)`)
		args = append(args, f.CategorySlug)
	}
	if f.FeaturedOnly {
		where = append(where, `p.is_featured = ?`)
		args = append(args, true)
	}
	order, ok := sortClause[f.Sort]
	if !ok {
		order = sortClause[SortNewest]
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 24
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `SELECT ` + productCols + ` FROM products p
	  WHERE ` + strings.Join(where, " AND ") + `
	  ORDER BY ` + order + `
	  LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	out := []domain.Product{}
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(q), args...)
	return out, err
}

// Featured returns up to limit featured products, newest first.
func (r *ProductRepo) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	return r.Search(ctx, ProductFilter{FeaturedOnly: true, Sort: SortNewest, Limit: limit})
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM products`)
	return n, err
}
