// Package core holds the ordering machinery behind the public composition
// API. It is internal so the fixed layer ordering cannot be subverted from
// outside the module.
package core

import (
	"cmp"
	"slices"
)

// entry pairs an item with a deterministic execution order. Lower Order
// values run first (outermost).
type entry[T any] struct {
	item  T
	order int
}

// Builder collects ordered entries and produces a slice sorted by order,
// ready for chaining. Entries with equal order keep registration order
// (stable sort).
type Builder[T any] struct {
	entries []entry[T]
}

// Add registers item with the given order.
func (b *Builder[T]) Add(order int, item T) {
	b.entries = append(b.entries, entry[T]{item: item, order: order})
}

// Build returns the registered items sorted by order.
func (b *Builder[T]) Build() []T {
	slices.SortStableFunc(b.entries, func(a, c entry[T]) int {
		return cmp.Compare(a.order, c.order)
	})

	items := make([]T, 0, len(b.entries))
	for _, e := range b.entries {
		items = append(items, e.item)
	}
	return items
}
