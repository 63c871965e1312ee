package services

import (
	"context"
	"iter"
)

// pageFunc fetches one page and returns the next page number, or 0 at the end.
type pageFunc[T any] func(ctx context.Context, page int) ([]T, int, error)

type pageResult[T any] struct {
	items []T
	next  int
}

// paged yields the items of a paged listing lazily, one gated request per
// page. Iteration stops after the first error, which is yielded once.
func paged[T any](ctx context.Context, gate *RateLimitGate, op string, fetch pageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for page := 1; page != 0; {
			res, err := Call(ctx, gate, op, func(ctx context.Context) (pageResult[T], error) {
				items, next, err := fetch(ctx, page)
				return pageResult[T]{items: items, next: next}, err
			})
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range res.items {
				if !yield(item, nil) {
					return
				}
			}
			page = res.next
		}
	}
}

// collect drains a paged listing.
func collect[T any](ctx context.Context, gate *RateLimitGate, op string, fetch pageFunc[T]) ([]T, error) {
	var out []T
	for item, err := range paged(ctx, gate, op, fetch) {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
