package services

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

const (
	StatusInStock    = "IN_STOCK"
	StatusLowStock   = "LOW_STOCK"
	StatusOutOfStock = "OUT_OF_STOCK"

	lowStockBelow = 10
)

type StockService struct {
	Stock *repos.StockRepo
}

func NewStockService(stock *repos.StockRepo) *StockService {
	return &StockService{Stock: stock}
}

// AvailabilityFor converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func AvailabilityFor(qty int) domain.Availability {
	status := StatusOutOfStock
	switch {
	case qty >= lowStockBelow:
		status = StatusInStock
	case qty > 0:
		status = StatusLowStock
	}
	return domain.Availability{Status: status, Qty: qty}
}

// CheckAvailability reads live stock. An unknown product reports ErrProductNotFound.
func (s *StockService) CheckAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	qty, err := s.Stock.Qty(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{}, ErrProductNotFound
		}
		return domain.Availability{}, err
	}
	return AvailabilityFor(qty), nil
}

func (s *StockService) List(ctx context.Context) ([]repos.StockRow, error) {
	return s.Stock.ListAll(ctx)
}

// SetStock is the admin overwrite. Negative values are rejected.
func (s *StockService) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return &CheckoutError{Code: CodeValidation, Fields: map[string]string{"qty": "Stock cannot be negative"}}
	}
	err := s.Stock.Set(ctx, productID, qty)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	return err
}
