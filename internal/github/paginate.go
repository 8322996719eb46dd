// internal/github/paginate.go
package github

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/go-github/v62/github"
)

// perPage is the page size requested from every list endpoint.
const perPage = 100

// PageFunc fetches one page of a list endpoint.
type PageFunc[T any] func(ctx context.Context, opts *github.ListOptions) ([]T, *github.Response, error)

// Paginate returns the items of every page of fetch, starting from page 1.
// See PaginateFrom.
func Paginate[T any](ctx context.Context, logger *slog.Logger, fetch PageFunc[T]) iter.Seq2[T, error] {
	return PaginateFrom(ctx, logger, 1, fetch)
}

// PaginateFrom returns a lazy sequence over the items of every page of fetch,
// starting at page. Until a response says otherwise the first page is assumed
// to be the last one; the rel="last" Link header raises the bound.
//
// A failed page ends the sequence with a single non-nil error, so callers can
// tell a short sequence from a complete one. Every range over the sequence
// starts over at page; it is restartable but not resumable.
func PaginateFrom[T any](ctx context.Context, logger *slog.Logger, page int, fetch PageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		last := page
		for p := page; p <= last; p++ {
			logger.Debug("Fetching page", "page", p, "last", last)

			items, resp, err := fetch(ctx, &github.ListOptions{Page: p, PerPage: perPage})
			if err != nil {
				var zero T
				yield(zero, fmt.Errorf("page %d: %w", p, err))
				return
			}
			if resp != nil && resp.LastPage > last {
				last = resp.LastPage
			}

			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect drains seq. On a truncated sequence it returns the items read so
// far together with the error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func mapSeq[T, U any](seq iter.Seq2[T, error], f func(T) U) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for v, err := range seq {
			if err != nil {
				var zero U
				yield(zero, err)
				return
			}
			if !yield(f(v), nil) {
				return
			}
		}
	}
}
