package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	GEL Currency = "GEL"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is the storefront's local currency, used when the
// caller omits one.
const DefaultCurrency = GEL

// CurrencyInfo contains metadata about a currency
type CurrencyInfo struct {
	Code        Currency
	MinorUnits  int // Number of decimal places
	Symbol      string
	SymbolFirst bool
}

var currencies = map[Currency]CurrencyInfo{
	GEL: {Code: GEL, MinorUnits: 2, Symbol: "₾", SymbolFirst: false},
	USD: {Code: USD, MinorUnits: 2, Symbol: "$", SymbolFirst: true},
	EUR: {Code: EUR, MinorUnits: 2, Symbol: "€", SymbolFirst: true},
}

// GetCurrencyInfo returns info about a currency
func GetCurrencyInfo(c Currency) (CurrencyInfo, bool) {
	info, ok := currencies[c]
	return info, ok
}

// IsSupported reports whether the currency is a recognized ISO code.
func IsSupported(c Currency) bool {
	_, ok := currencies[c]
	return ok
}

// Money represents a monetary amount in minor units (tetri, cents, etc.)
type Money struct {
	AmountMinor int64    `json:"amount_minor"`
	Currency    Currency `json:"currency"`
}

// New creates a new Money value from minor units
func New(amountMinor int64, currency Currency) Money {
	return Money{
		AmountMinor: amountMinor,
		Currency:    currency,
	}
}

// Zero returns a zero amount for a currency
func Zero(currency Currency) Money {
	return Money{AmountMinor: 0, Currency: currency}
}

// Parse errors
var (
	ErrMalformedAmount   = errors.New("malformed amount")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrTooManyDecimals   = errors.New("too many decimal places")
	ErrAmountTooLarge    = errors.New("amount too large")
)

const maxWholeDigits = 15

// ParseMajor parses a major-unit decimal string ("49.99") into Money.
// The parse is exact: no float round-trip, no exponents, no grouping.
// Zero and negative amounts are rejected; payment amounts are always
// positive.
func ParseMajor(s string, currency Currency) (Money, error) {
	info, ok := currencies[currency]
	if !ok {
		return Money{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	s = strings.TrimSpace(s)
	if s == "" || s[0] == '-' || s[0] == '+' {
		return Money{}, ErrMalformedAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > info.MinorUnits {
		return Money{}, ErrTooManyDecimals
	}
	if whole == "" {
		return Money{}, ErrMalformedAmount
	}
	// 15 whole digits plus the minor-unit scaling stays well inside
	// int64; anything longer could wrap undetected mid-loop.
	if len(whole) > maxWholeDigits {
		return Money{}, ErrAmountTooLarge
	}

	var minor int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return Money{}, ErrMalformedAmount
		}
		minor = minor*10 + int64(r-'0')
	}
	// Pad the fraction out to the currency's minor units.
	for i := 0; i < info.MinorUnits; i++ {
		minor *= 10
		if i < len(frac) {
			r := frac[i]
			if r < '0' || r > '9' {
				return Money{}, ErrMalformedAmount
			}
			minor += int64(r - '0')
		}
	}

	if minor <= 0 {
		return Money{}, ErrNonPositiveAmount
	}

	return Money{AmountMinor: minor, Currency: currency}, nil
}

// MajorString renders the amount as a major-unit decimal string ("49.99"),
// the canonical form on the storefront wire.
func (m Money) MajorString() string {
	info, ok := currencies[m.Currency]
	if !ok {
		info = CurrencyInfo{MinorUnits: 2}
	}
	if info.MinorUnits == 0 {
		return fmt.Sprintf("%d", m.AmountMinor)
	}
	div := int64(1)
	for i := 0; i < info.MinorUnits; i++ {
		div *= 10
	}
	sign := ""
	minor := m.AmountMinor
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%0*d", sign, minor/div, info.MinorUnits, minor%div)
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.AmountMinor == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.AmountMinor > 0
}

// Add adds two money values (must be same currency)
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{
		AmountMinor: m.AmountMinor + other.AmountMinor,
		Currency:    m.Currency,
	}, nil
}

// Equal checks equality
func (m Money) Equal(other Money) bool {
	return m.AmountMinor == other.AmountMinor && m.Currency == other.Currency
}

// String returns a human-readable representation
func (m Money) String() string {
	info, ok := currencies[m.Currency]
	if !ok {
		return fmt.Sprintf("%d %s (minor)", m.AmountMinor, m.Currency)
	}
	if info.SymbolFirst {
		return info.Symbol + m.MajorString()
	}
	return m.MajorString() + info.Symbol
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AmountMinor int64  `json:"amount_minor"`
		Currency    string `json:"currency"`
	}{
		AmountMinor: m.AmountMinor,
		Currency:    string(m.Currency),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		AmountMinor int64  `json:"amount_minor"`
		Currency    string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.AmountMinor = v.AmountMinor
	m.Currency = Currency(v.Currency)
	return nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(src interface{}) error {
	if src == nil {
		*m = Money{}
		return nil
	}
	switch v := src.(type) {
	case int64:
		m.AmountMinor = v
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("cannot scan into Money")
	}
}

// Value implements driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return json.Marshal(m)
}
