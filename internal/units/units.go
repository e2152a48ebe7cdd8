// Package units converts physical quantities between display units and the
// canonical base unit of their dimension. All stored ingredient costs are
// expressed per base unit, so every piece of cost math in the application
// funnels through this package.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit identifies one member of the closed unit set. The codes match the
// values persisted on ingredient rows.
type Unit string

const (
	Kilogram   Unit = "KILOGRAM"
	Gram       Unit = "GRAM"
	Milliliter Unit = "MILLILITER"
	// Piece is the countable dimension; the stored code is "UNIT".
	Piece Unit = "UNIT"
)

var (
	// ErrUnsupportedUnit is returned for any tag outside the closed set.
	ErrUnsupportedUnit = errors.New("unsupported unit")
	// ErrNonPositiveQuantity is returned when a purchase cost is requested
	// for a zero or negative quantity.
	ErrNonPositiveQuantity = errors.New("purchase quantity must be greater than zero")
)

var thousand = decimal.NewFromInt(1000)

// Parse normalises a raw unit code into a Unit.
func Parse(value string) (Unit, error) {
	switch Unit(strings.ToUpper(strings.TrimSpace(value))) {
	case Kilogram:
		return Kilogram, nil
	case Gram:
		return Gram, nil
	case Milliliter:
		return Milliliter, nil
	case Piece:
		return Piece, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, value)
	}
}

// ToBase converts an amount in the given unit to the base unit of its
// dimension (gram for mass, milliliter for volume, unit for count).
func ToBase(amount decimal.Decimal, unit Unit) (decimal.Decimal, error) {
	switch unit {
	case Kilogram:
		return amount.Mul(thousand), nil
	case Gram, Milliliter, Piece:
		return amount, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
}

// FromBase converts an amount in the base unit back to the given unit.
func FromBase(baseAmount decimal.Decimal, unit Unit) (decimal.Decimal, error) {
	switch unit {
	case Kilogram:
		return baseAmount.Div(thousand), nil
	case Gram, Milliliter, Piece:
		return baseAmount, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
}

// BaseOf reports the base unit for the given unit's dimension.
func BaseOf(unit Unit) (Unit, error) {
	switch unit {
	case Kilogram, Gram:
		return Gram, nil
	case Milliliter:
		return Milliliter, nil
	case Piece:
		return Piece, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
}

// Compatible reports whether two units share a physical dimension. Unknown
// units are never compatible with anything.
func Compatible(a, b Unit) bool {
	baseA, err := BaseOf(a)
	if err != nil {
		return false
	}
	baseB, err := BaseOf(b)
	if err != nil {
		return false
	}
	return baseA == baseB
}

// CostPerBaseUnit derives a per-base-unit cost from a bulk purchase:
// 400 g bought for 8000 yields 20 per gram. The quantity must be strictly
// positive; callers are expected to validate before persisting.
func CostPerBaseUnit(quantity, totalCost decimal.Decimal, unit Unit) (decimal.Decimal, error) {
	if quantity.Sign() <= 0 {
		return decimal.Zero, ErrNonPositiveQuantity
	}
	base, err := ToBase(quantity, unit)
	if err != nil {
		return decimal.Zero, err
	}
	if base.Sign() <= 0 {
		return decimal.Zero, ErrNonPositiveQuantity
	}
	return totalCost.Div(base), nil
}

// Label returns a human-readable unit name. Unknown codes fall through to
// the raw value so display code never fails on bad data.
func Label(unit Unit, plural bool) string {
	switch unit {
	case Kilogram:
		if plural {
			return "kilograms"
		}
		return "kilogram"
	case Gram:
		if plural {
			return "grams"
		}
		return "gram"
	case Milliliter:
		if plural {
			return "milliliters"
		}
		return "milliliter"
	case Piece:
		if plural {
			return "units"
		}
		return "unit"
	default:
		return string(unit)
	}
}

// Abbreviation returns the short display form of a unit.
func Abbreviation(unit Unit) string {
	switch unit {
	case Kilogram:
		return "kg"
	case Gram:
		return "g"
	case Milliliter:
		return "ml"
	case Piece:
		return "u"
	default:
		return string(unit)
	}
}
