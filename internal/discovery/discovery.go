// Package discovery finds candidate page URLs for a query.
package discovery

import (
	"context"
	"strings"
)

const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// Provider returns up to limit candidate URLs for query, in ranking order.
// Providers report unreachable backends as an empty list, not an error.
type Provider interface {
	Discover(ctx context.Context, query string, limit int) ([]string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, query string, limit int) ([]string, error)

func (f ProviderFunc) Discover(ctx context.Context, query string, limit int) ([]string, error) {
	return f(ctx, query, limit)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func isAbsoluteHTTP(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}
