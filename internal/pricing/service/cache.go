package service

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRewriter remembers the search phrase produced for each product name.
// Rewrites run at temperature 0, so a repeated name gets the same phrase
// without another model call. Failed rewrites are not cached.
type CachedRewriter struct {
	next  QueryRewriter
	cache *lru.Cache[string, string]
}

// NewCachedRewriter wraps next with an LRU of size entries.
func NewCachedRewriter(next QueryRewriter, size int) (*CachedRewriter, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedRewriter{next: next, cache: cache}, nil
}

func (r *CachedRewriter) Rewrite(ctx context.Context, product string) (string, error) {
	key := cacheKey(product)
	if phrase, ok := r.cache.Get(key); ok {
		return phrase, nil
	}

	phrase, err := r.next.Rewrite(ctx, product)
	if err != nil {
		return "", err
	}
	r.cache.Add(key, phrase)
	return phrase, nil
}

func cacheKey(product string) string {
	return strings.ToLower(strings.Join(strings.Fields(product), " "))
}
