package models

// Counter backs atomic sequence allocation (human-readable order numbers).
type Counter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

// CounterOrderNumber is the counter row used for order number allocation.
const CounterOrderNumber = "order_number"
