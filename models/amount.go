package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrAmountOverflow is returned when a computed credit amount does not fit in int64
var ErrAmountOverflow = errors.New("amount exceeds the supported range")

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// floorAmount rounds d down to whole credits
func floorAmount(d decimal.Decimal) (int64, error) {
	floored := d.Floor()
	if floored.GreaterThan(maxAmount) || floored.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, floored.String())
	}
	return floored.IntPart(), nil
}
