package enums

import "fmt"

// StockAdjustmentOp is the direction of a manual stock adjustment.
type StockAdjustmentOp string

const (
	StockAdjustmentAdd      StockAdjustmentOp = "add"
	StockAdjustmentSubtract StockAdjustmentOp = "subtract"
)

var validStockAdjustmentOps = []StockAdjustmentOp{
	StockAdjustmentAdd,
	StockAdjustmentSubtract,
}

// String implements fmt.Stringer.
func (s StockAdjustmentOp) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockAdjustmentOp.
func (s StockAdjustmentOp) IsValid() bool {
	for _, candidate := range validStockAdjustmentOps {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockAdjustmentOp converts raw input into a StockAdjustmentOp.
func ParseStockAdjustmentOp(value string) (StockAdjustmentOp, error) {
	for _, candidate := range validStockAdjustmentOps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock adjustment op %q", value)
}
