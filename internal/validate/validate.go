package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ      = regexp.MustCompile(`^[A-Za-z0-9 _'\-]{1,50}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reSlug   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	reCoupon = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)
)

// Address is the shipping form as posted.
type Address struct {
	FullName string
	Address  string
	City     string
	ZipCode  string
	Phone    string
}

// Minimum lengths after trimming.
const (
	MinFullName = 2
	MinAddress  = 5
	MinCity     = 2
	MinZip      = 3
	MinPhone    = 10
	maxField    = 200
)

// CheckAddress trims every field and returns the cleaned address plus a
// field -> message map. An empty map means the address is acceptable.
func CheckAddress(in Address) (Address, map[string]string) {
	out := Address{
		FullName: strings.TrimSpace(in.FullName),
		Address:  strings.TrimSpace(in.Address),
		City:     strings.TrimSpace(in.City),
		ZipCode:  strings.TrimSpace(in.ZipCode),
		Phone:    strings.TrimSpace(in.Phone),
	}
	errs := map[string]string{}
	check := func(field, v string, min int, msg string) {
		n := utf8.RuneCountInString(v)
		switch {
		case n < min:
			errs[field] = msg
		case n > maxField:
			errs[field] = "Too long"
		}
	}
	check("fullName", out.FullName, MinFullName, "Full name must be at least 2 characters")
	check("address", out.Address, MinAddress, "Address must be at least 5 characters")
	check("city", out.City, MinCity, "City must be at least 2 characters")
	check("zipCode", out.ZipCode, MinZip, "ZIP code must be at least 3 characters")
	check("phone", out.Phone, MinPhone, "Phone number must be at least 10 characters")
	return out, errs
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 50 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a posted quantity. Garbage becomes 1; large values are capped
// at 99 before stock clamping happens in the cart.
func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > 99 {
		return 99
	}
	return n
}

// SetQty parses a quantity for an explicit update. Unlike Qty it keeps
// values below 1 so the cart can reject them.
func SetQty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	if n > 99 {
		n = 99
	}
	return n, true
}

// ID validates a simple resource identifier (product/line/order ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Slug(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s != "" && len(s) <= 80 && reSlug.MatchString(s)
}

// CouponCode upper-cases and checks a coupon code. Empty means "no coupon"
// and is reported as valid.
func CouponCode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	return s, reCoupon.MatchString(s)
}

// Money parses a non-negative amount with at most two decimals.
func Money(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() || d.Exponent() < -2 {
		return decimal.Zero, false
	}
	return d, true
}

// Date parses an optional yyyy-mm-dd (HTML date input) as end of that day UTC.
func Date(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	t = t.Add(24*time.Hour - time.Second).UTC()
	return &t, true
}

// Password enforces a simple length window for login checks.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
