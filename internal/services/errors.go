package services

import (
	"errors"
	"fmt"

	"storefront/internal/pricing"
)

// Code classifies why a cart or checkout operation failed.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeEmptyCart          Code = "EMPTY_CART"
	CodeStockChanged       Code = "STOCK_CHANGED"
	CodeCouponNotFound     Code = "COUPON_NOT_FOUND"
	CodeCouponInactive     Code = "COUPON_INACTIVE"
	CodeCouponExpired      Code = "COUPON_EXPIRED"
	CodeCouponExhausted    Code = "COUPON_EXHAUSTED"
	CodeCouponBelowMinimum Code = "COUPON_BELOW_MINIMUM"
	CodeUnsupportedPayment Code = "UNSUPPORTED_PAYMENT_METHOD"
	CodeBackendUnavailable Code = "BACKEND_UNAVAILABLE"
	CodePartialWrite       Code = "PARTIAL_WRITE"
	CodeInProgress         Code = "CHECKOUT_IN_PROGRESS"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrBadStatus       = errors.New("unknown order status")
)

// CheckoutError carries a Code plus whatever detail the page needs to
// explain it. Err is the underlying cause and is never shown to customers.
type CheckoutError struct {
	Code      Code
	Fields    map[string]string // field -> message, for VALIDATION_ERROR
	ProductID string            // offending product, for STOCK_CHANGED
	Err       error
}

func (e *CheckoutError) Error() string {
	switch {
	case e.Err != nil && e.ProductID != "":
		return fmt.Sprintf("%s (%s): %v", e.Code, e.ProductID, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.ProductID != "":
		return fmt.Sprintf("%s (%s)", e.Code, e.ProductID)
	}
	return string(e.Code)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// Message is safe to render.
func (e *CheckoutError) Message() string {
	switch e.Code {
	case CodeValidation:
		return "Please correct the highlighted fields."
	case CodeUnauthenticated:
		return "Please sign in to continue."
	case CodeEmptyCart:
		return "Your cart is empty."
	case CodeStockChanged:
		return "Some items in your cart are no longer available in the requested quantity. Please review your cart."
	case CodeCouponNotFound:
		return "Coupon not found."
	case CodeCouponInactive:
		return pricing.CouponInactive.Message()
	case CodeCouponExpired:
		return pricing.CouponExpired.Message()
	case CodeCouponExhausted:
		return pricing.CouponExhausted.Message()
	case CodeCouponBelowMinimum:
		return pricing.CouponBelowMinimum.Message()
	case CodeUnsupportedPayment:
		return "Only cash on delivery is available."
	case CodeInProgress:
		return "Your order is already being placed."
	}
	return "We could not place your order right now. Please try again in a moment."
}

// CodeOf returns the Code carried by err, or "" when err is not a CheckoutError.
func CodeOf(err error) Code {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func fail(code Code, err error) *CheckoutError { return &CheckoutError{Code: code, Err: err} }

func backend(err error) *CheckoutError { return fail(CodeBackendUnavailable, err) }

func couponFailure(s pricing.CouponStatus) Code {
	switch s {
	case pricing.CouponInactive:
		return CodeCouponInactive
	case pricing.CouponExpired:
		return CodeCouponExpired
	case pricing.CouponExhausted:
		return CodeCouponExhausted
	case pricing.CouponBelowMinimum:
		return CodeCouponBelowMinimum
	}
	return ""
}
