// Package book implements the two-sided limit order book: the Order
// entity, the per-side PriceQueue with price-time priority, and the
// OrderBook that owns both queues.
//
// The book is pure storage plus ordering. Matching lives in the engine
// package, which is the only writer; nothing here is safe for
// concurrent use on its own.
package book
