package enums

import "fmt"

// StockDirection is the direction of an inventory adjustment.
type StockDirection string

const (
	StockIn  StockDirection = "in"
	StockOut StockDirection = "out"
)

// String implements fmt.Stringer.
func (d StockDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a known StockDirection.
func (d StockDirection) IsValid() bool {
	return d == StockIn || d == StockOut
}

// ParseStockDirection converts raw input into a StockDirection.
func ParseStockDirection(value string) (StockDirection, error) {
	switch StockDirection(value) {
	case StockIn:
		return StockIn, nil
	case StockOut:
		return StockOut, nil
	}
	return "", fmt.Errorf("invalid stock direction %q", value)
}
