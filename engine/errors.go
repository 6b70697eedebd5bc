package engine

import "errors"

// Validation errors surfaced by Submit. A rejected order never enters
// the book.
var (
	ErrMissingPrice    = errors.New("limit order requires a price")
	ErrNonPositiveQty  = errors.New("order quantity must be positive")
	ErrInvalidSide     = errors.New("order side must be buy or sell")
	ErrPriceNotAligned = errors.New("limit price must align to tick size")
)
