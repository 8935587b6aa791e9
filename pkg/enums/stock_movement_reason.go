package enums

import "fmt"

// StockMovementReason explains why a product's stock counter changed.
type StockMovementReason string

const (
	StockMovementReasonRestock      StockMovementReason = "restock"
	StockMovementReasonAdjustment   StockMovementReason = "adjustment"
	StockMovementReasonSale         StockMovementReason = "sale"
	StockMovementReasonCancellation StockMovementReason = "cancellation"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementReasonRestock,
	StockMovementReasonAdjustment,
	StockMovementReasonSale,
	StockMovementReasonCancellation,
}

// String implements fmt.Stringer.
func (v StockMovementReason) String() string {
	return string(v)
}

// IsValid reports whether the value is a known StockMovementReason.
func (v StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
