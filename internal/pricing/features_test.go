package pricing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type pricingTestContext struct {
	lines  []pricing.Line
	coupon *domain.Coupon
	quote  pricing.Quote
}

func (p *pricingTestContext) reset() {
	p.lines = nil
	p.coupon = nil
	p.quote = pricing.Quote{}
}

func (p *pricingTestContext) aCartLinePricedWithQuantity(price string, qty int) error {
	v, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	p.lines = append(p.lines, pricing.Line{Price: v, Quantity: qty})
	return nil
}

func (p *pricingTestContext) anActiveFlatCouponWorthWithMinimumOrder(value, min string) error {
	p.coupon = &domain.Coupon{Code: "FLAT", DiscountType: domain.DiscountFlat,
		DiscountValue: decimal.RequireFromString(value), MinOrderAmount: decimal.RequireFromString(min), Active: true}
	return nil
}

func (p *pricingTestContext) anActivePercentageCouponWorthUsedOfTimes(value string, used, max int) error {
	p.coupon = &domain.Coupon{Code: "PCT", DiscountType: domain.DiscountPercentage,
		DiscountValue: decimal.RequireFromString(value), Active: true, UsedCount: used, MaxUses: &max}
	return nil
}

func (p *pricingTestContext) anActivePercentageCouponWorthThatExpiredYesterday(value string) error {
	at := now.Add(-24 * time.Hour)
	p.coupon = &domain.Coupon{Code: "OLD", DiscountType: domain.DiscountPercentage,
		DiscountValue: decimal.RequireFromString(value), Active: true, ExpireAt: &at}
	return nil
}

func (p *pricingTestContext) theCartIsPriced() error {
	p.quote = pricing.Calculate(p.lines, p.coupon, now)
	return nil
}

func moneyIs(name string, got func(*pricingTestContext) decimal.Decimal, p *pricingTestContext) func(string) error {
	return func(want string) error {
		if !decimal.RequireFromString(want).Equal(got(p)) {
			return fmt.Errorf("%s: want %s, got %s", name, want, got(p))
		}
		return nil
	}
}

func (p *pricingTestContext) theCouponVerdictIs(want string) error {
	if string(p.quote.Coupon) != want {
		return fmt.Errorf("coupon verdict: want %s, got %s", want, p.quote.Coupon)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a cart line priced (\d+\.\d+) with quantity (\d+)$`, tc.aCartLinePricedWithQuantity)
	ctx.Step(`^an active flat coupon worth (\d+\.\d+) with minimum order (\d+\.\d+)$`, tc.anActiveFlatCouponWorthWithMinimumOrder)
	ctx.Step(`^an active percentage coupon worth (\d+) used (\d+) of (\d+) times$`, tc.anActivePercentageCouponWorthUsedOfTimes)
	ctx.Step(`^an active percentage coupon worth (\d+) that expired yesterday$`, tc.anActivePercentageCouponWorthThatExpiredYesterday)

	ctx.Step(`^the cart is priced$`, tc.theCartIsPriced)

	ctx.Step(`^the subtotal is (\d+\.\d+)$`, moneyIs("subtotal", func(p *pricingTestContext) decimal.Decimal { return p.quote.Subtotal }, tc))
	ctx.Step(`^the shipping is (\d+\.\d+)$`, moneyIs("shipping", func(p *pricingTestContext) decimal.Decimal { return p.quote.Shipping }, tc))
	ctx.Step(`^the discount is (\d+\.\d+)$`, moneyIs("discount", func(p *pricingTestContext) decimal.Decimal { return p.quote.Discount }, tc))
	ctx.Step(`^the total is (\d+\.\d+)$`, moneyIs("total", func(p *pricingTestContext) decimal.Decimal { return p.quote.Total }, tc))
	ctx.Step(`^the coupon verdict is "([^"]*)"$`, tc.theCouponVerdictIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
