package donation

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Amount is a donation value held in minor units (cents). On the wire it is
// always a major-unit decimal, for both intent creation and record creation.
type Amount int64

var ErrInvalidAmount = errors.New("invalid donation amount")

// ParseAmount accepts a positive, finite decimal with at most two fraction digits.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, ErrInvalidAmount
	}

	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > 2 {
		return 0, ErrInvalidAmount
	}

	cents := math.Round(f * 100)
	if cents < 1 || cents > math.MaxInt64/2 {
		return 0, ErrInvalidAmount
	}

	return Amount(cents), nil
}

func FromMajor(units int64) Amount { return Amount(units * 100) }

func (a Amount) Cents() int64 { return int64(a) }

// String renders the major-unit decimal without trailing zeros: 25, 25.5, 25.05.
func (a Amount) String() string {
	sign, whole, frac := a.parts()
	if frac == 0 {
		return sign + strconv.FormatUint(whole, 10)
	}

	s := strconv.FormatUint(whole, 10) + "." + pad2(frac)
	return sign + strings.TrimRight(s, "0")
}

// Display renders with two decimals for tables and receipts.
func (a Amount) Display() string {
	sign, whole, frac := a.parts()
	return sign + strconv.FormatUint(whole, 10) + "." + pad2(frac)
}

// parts splits a into its sign and the magnitude's whole and cent digits.
// Refunds and adjustments from the backend arrive negative.
func (a Amount) parts() (sign string, whole, frac uint64) {
	n := uint64(a)
	if a < 0 {
		sign = "-"
		n = -n
	}
	return sign, n / 100, n % 100
}

func pad2(n uint64) string {
	if n < 10 {
		return "0" + strconv.FormatUint(n, 10)
	}
	return strconv.FormatUint(n, 10)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*a = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrInvalidAmount
	}

	*a = Amount(math.Round(f * 100))
	return nil
}
